package commands

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-pageblocks/internal/blocks"
	"github.com/goliatone/go-pageblocks/internal/pages"
)

const (
	commandValidationCode   = "COMMAND_VALIDATION_FAILED"
	commandContextCanceled  = "COMMAND_CONTEXT_CANCELED"
	commandContextTimeout   = "COMMAND_CONTEXT_TIMEOUT"
	commandContextErrorCode = "COMMAND_CONTEXT_ERROR"
	commandExecuteFailed    = "COMMAND_EXECUTION_FAILED"
	blockValidationCode     = "BLOCK_VALIDATION_FAILED"
	pageSlugConflictCode    = "PAGE_SLUG_CONFLICT"
	pageNotFoundCode        = "PAGE_NOT_FOUND"
)

func wrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "command validation failed").
		WithTextCode(commandValidationCode)
}

func wrapContextError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	switch err {
	case context.Canceled:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution cancelled").
			WithTextCode(commandContextCanceled)
	case context.DeadlineExceeded:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution deadline exceeded").
			WithTextCode(commandContextTimeout)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command context error").
			WithTextCode(commandContextErrorCode)
	}
}

// wrapExecuteError tags submitted content problems as validation failures so
// callers can tell them from storage faults.
func wrapExecuteError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}

	var verrs validation.Errors
	switch {
	case errors.Is(err, blocks.ErrFieldValidation), errors.Is(err, blocks.ErrUnknownType), errors.Is(err, blocks.ErrNotFound):
		return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithTextCode(blockValidationCode)
	case errors.Is(err, pages.ErrSlugConflict):
		return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithTextCode(pageSlugConflictCode)
	case errors.Is(err, pages.ErrNotFound):
		return goerrors.Wrap(err, goerrors.CategoryCommand, err.Error()).
			WithTextCode(pageNotFoundCode)
	case errors.As(err, &verrs):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "request validation failed").
			WithTextCode(commandValidationCode)
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution failed").
		WithTextCode(commandExecuteFailed)
}
