package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"captionstudio/internal/httpapi/handlers"
	"captionstudio/internal/httpkit"
	"captionstudio/internal/pkg/middleware"
)

type Deps struct {
	handlers.Deps

	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// CORS for the studio frontend, then request ids and logging
	r.Use(httpkit.CORS(httpkit.CORSOptionsFromOrigins(d.CORSOrigins)))

	if d.CheckOrigin == nil {
		d.CheckOrigin = originAllowed(d.CORSOrigins)
	}
	h := handlers.New(d.Deps)
	log := h.Log()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	wrap := func(fn middleware.ErrorHandlerFunc) http.HandlerFunc {
		return middleware.WrapHandler(log, fn)
	}

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- STUDIO API ----
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", wrap(h.Upload))
		r.Get("/video", wrap(h.Video))
		r.Post("/transcribe", wrap(h.Transcribe))
		r.Post("/lambda/render", wrap(h.LambdaRender))
		r.Post("/lambda/progress", wrap(h.LambdaProgress))
	})

	// ---- RENDER SESSIONS ----
	r.Post("/renders", wrap(h.PostRender))
	r.Get("/renders", wrap(h.ListRenders))
	r.Get("/renders/{sessionId}", wrap(h.GetRender))
	r.Post("/renders/{sessionId}/undo", wrap(h.UndoRender))
	r.Get("/renders/{sessionId}/events", wrap(h.RenderEvents))
	r.Get("/renders/{sessionId}/captions.vtt", wrap(h.RenderCaptions))

	return r
}

func originAllowed(origins []string) func(string) bool {
	return func(origin string) bool {
		for _, o := range origins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
