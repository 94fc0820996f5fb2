package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	save := &CodedError{Code: CodeCatalogSave, Message: "save catalog", Err: errors.New("disk full")}

	assert.Equal(t, CodeCatalogSave, CodeOf(save))
	assert.Equal(t, CodeCatalogSave, CodeOf(fmt.Errorf("pass: %w", save)))
	assert.Equal(t, CodeCanceled, CodeOf(&CodedError{Code: CodeCatalogLoad, Err: context.Canceled}))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, "save catalog: disk full", save.Error())
	assert.Equal(t, "maxWorkers must be <= 8, got 9", invalidParams("maxWorkers must be <= 8, got %d", 9).Error())
}
