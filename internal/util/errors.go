package util

import "errors"

var (
	ErrUserNotFound         = errors.New("用户不存在")
	ErrEmailRegistered      = errors.New("该邮箱已被注册")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrExamNotFound         = errors.New("exam not found")
	ErrExamNotPublished     = errors.New("exam not published or not accessible")
	ErrCatalogUnavailable   = errors.New("exam catalog unavailable")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptNotActive     = errors.New("attempt not active")
	ErrAttemptExpired       = errors.New("attempt expired")
	ErrAlreadyActiveAttempt = errors.New("an in-progress attempt already exists for this exam")
	ErrUnknownQuestion      = errors.New("question not part of this attempt")
	ErrExamHasNoQuestions   = errors.New("exam has no questions")
)
