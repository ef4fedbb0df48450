package storage

import "captionstudio/internal/ports"

// Provider is the storage contract used across the api and the worker.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
