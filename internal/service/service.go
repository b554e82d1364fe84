// Package service exposes the article and category operations used by the
// presentation layer. Every call returns an envelope; remote and local
// results differ only in the reported source and message.
package service

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/resolver"
)

// Options tune both services.
type Options struct {
	// DetailPolicy decides where single-record lookups look first.
	DetailPolicy resolver.Policy
	// RelatedLimit caps Related when the caller passes n <= 0.
	RelatedLimit int
}

// DefaultRelatedLimit is used when Options.RelatedLimit is not set.
const DefaultRelatedLimit = 3

// MsgSessionExpired is the failure message after a 401.
const MsgSessionExpired = "Session expired, please log in again"

func (o Options) relatedLimit() int {
	if o.RelatedLimit > 0 {
		return o.RelatedLimit
	}
	return DefaultRelatedLimit
}

// demoID returns an identifier for a record created without the API.
func demoID() string {
	return "demo-" + uuid.NewString()
}

func entityPath(collection, id string) string {
	return fmt.Sprintf("/%s/%s", collection, url.PathEscape(id))
}

// envelope turns a resolved outcome into the response handed to callers.
func envelope[T any](o resolver.Outcome[model.Response[T]], failure string) model.Response[T] {
	if !o.OK() {
		if o.Expired() {
			return model.Fail[T](MsgSessionExpired)
		}
		return model.Fail[T](failure)
	}
	r := o.Value
	r.Status = true
	r.Source = o.Source
	return r
}
