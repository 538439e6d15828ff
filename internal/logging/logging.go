// Package logging threads a logrus entry through context.Context so every call
// logs with the fields of the repository it works on.
package logging

import (
	"context"

	logger "github.com/sirupsen/logrus"
)

type entryKey struct{}

// WithEntry returns a context carrying the entry.
func WithEntry(ctx context.Context, entry *logger.Entry) context.Context {
	return context.WithValue(ctx, entryKey{}, entry)
}

// FromContext returns the entry carried by ctx, or one on the standard logger.
func FromContext(ctx context.Context) *logger.Entry {
	if entry, ok := ctx.Value(entryKey{}).(*logger.Entry); ok {
		return entry
	}
	return logger.NewEntry(logger.StandardLogger())
}

// WithFields derives an entry with extra fields and stores it in the returned context.
func WithFields(ctx context.Context, fields logger.Fields) (context.Context, *logger.Entry) {
	entry := FromContext(ctx).WithFields(fields)
	return WithEntry(ctx, entry), entry
}
