package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ContentKey returns the cache key for a content document of the given kind
func (r *CacheKeyStruct) ContentKey(kind, id string) string {
	return fmt.Sprintf("content:%s:%s", kind, id)
}

// ContentListKey returns the cache key for the listing of a content kind
func (r *CacheKeyStruct) ContentListKey(kind string) string {
	return fmt.Sprintf("content:%s:list", kind)
}

// SubmissionKey marks a user's progress submission as already accepted
func (r *CacheKeyStruct) SubmissionKey(userID int, key string) string {
	return fmt.Sprintf("progress:submitted:%d:%s", userID, key)
}

// RevokedTokenKey returns the key marking a JWT as logged out
func (r *CacheKeyStruct) RevokedTokenKey(jti string) string {
	return fmt.Sprintf("auth:revoked:%s", jti)
}

// ProgressFeedChannel returns the Redis PubSub channel carrying saved attempts
func (r *CacheKeyStruct) ProgressFeedChannel() string {
	return "progress:feed"
}

var CacheKey = NewCacheKeyStruct()
