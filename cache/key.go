package cache

import (
	"runtime"
	"strconv"
)

// CallerKey derives a cache key from the caller's call site ("file:line").
// It is a convenience for code that caches one computation per source
// location and doesn't want to invent key names:
//
//	v, err := c.Get(ctx, cache.CallerKey(), loadConfig)
//
// The key is stable across invocations from the same line but changes when
// the file is edited; prefer explicit keys for anything long-lived.
func CallerKey() string {
	return callerKey(2)
}

func callerKey(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown:0"
	}
	return file + ":" + strconv.Itoa(line)
}
