// Package rcache caches successful render outcomes by input identity: a
// bounded in-memory LRU in front of an optional msgpack disk cache.
// Failed outcomes are never stored, and diagram text is only kept as the
// effective text of a cached render.
package rcache
