// Package errors provides classified error primitives used across nblink.
//
// A ClassifiedError carries a category (descriptor, target, media, config, ...),
// a severity, a retry hint and free-form context. Errors are built with a fluent
// builder:
//
//	err := errors.WrapError(cause, errors.CategoryTarget, "linked notebook unreadable").
//		WithContext("document", docName).
//		WithContext("resolved_path", absPath).
//		Build()
//
// The CLI adapter maps categories to process exit codes.
package errors
