// Package config loads and watches the chronywatch configuration file.
//
// Load(path) reads the YAML file, applies defaults (1s tick, chronyc TTLs
// 1s/5s/20s, 120-sample history, fixed display scales), then validates
// every threshold and TTL. Validation errors are fatal at startup and only
// at startup: a bad hot-reload keeps the previous config active.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create
// pattern used by atomic-save editors by re-adding the watch after a
// rename event.
package config
