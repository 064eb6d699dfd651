package utils_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/email-classifier-api/internal/utils"
)

type sampleRequest struct {
	Body     *string `json:"input_email_body" validate:"required"`
	PageSize int     `query:"page_size" validate:"omitempty,max=100"`
}

func TestValidationDetailsUsesWireNames(t *testing.T) {
	validate := validator.New()
	validate.RegisterTagNameFunc(utils.FieldName)

	err := validate.Struct(sampleRequest{PageSize: 1000})
	require.Error(t, err)

	wrapped := fmt.Errorf("%w: %w", errors.New("invalid input"), err)
	require.Equal(t, map[string]string{
		"input_email_body": "required",
		"page_size":        "max=100",
	}, utils.ValidationDetails(wrapped))
}

func TestValidationDetailsWithoutValidatorErrors(t *testing.T) {
	require.Nil(t, utils.ValidationDetails(errors.New("boom")))
	require.Nil(t, utils.ValidationDetails(nil))
}
