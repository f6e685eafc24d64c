package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLamdError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *LamdError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
		{
			name:     "required key is named",
			err:      ConfigRequired("listtemplate"),
			expected: "config (fatal): required configuration missing [key=listtemplate]",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestTypeCoercionNamesRecordAndValue(t *testing.T) {
	err := TypeCoercion("convert_datetime", "talks.yml#3", "date", "not a date", stderrors.New("bad format"))

	msg := err.Error()
	assert.Contains(t, msg, "record=talks.yml#3")
	assert.Contains(t, msg, `value="not a date"`)
	assert.True(t, Is(err, ErrTypeCoercion))
	assert.True(t, IsCategory(err, CategoryCoercion))
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	base := DocumentNotFound("talk.md")
	wrapped := fmt.Errorf("resolve title: %w", base)

	assert.True(t, Is(wrapped, ErrDocumentNotFound))
	assert.False(t, Is(wrapped, ErrFieldNotFound))
	assert.Equal(t, CategoryDocument, GetCategory(wrapped))

	le, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "talk.md", le.Context["path"])
}

func TestCauseIsUnwrapped(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := ServiceUnavailable(cause)

	assert.True(t, Is(err, cause))
	assert.True(t, Is(err, ErrServiceUnavailable))
}

func TestIsCategory(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		category ErrorCategory
		want     bool
	}{
		{"config matches config", ConfigNotFound("_lamd.yml"), CategoryConfig, true},
		{"config does not match git", ConfigNotFound("_lamd.yml"), CategoryGit, false},
		{"stage error", UnknownStage("filter", "bogus"), CategoryStage, true},
		{"plain error", stderrors.New("x"), CategoryConfig, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsCategory(tc.err, tc.category))
		})
	}
	assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
}

func TestCLIErrorAdapter(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)

	assert.Equal(t, 0, a.ExitCodeFor(nil))
	assert.Equal(t, 1, a.ExitCodeFor(stderrors.New("x")))
	assert.Equal(t, 2, a.ExitCodeFor(ConfigRequired("listtemplate")))
	assert.Equal(t, 3, a.ExitCodeFor(DocumentNotFound("a.md")))
	assert.Equal(t, 4, a.ExitCodeFor(TypeCoercion("convert_int", "r", "year", "x", nil)))

	assert.Equal(t, "required configuration missing (key=listtemplate)", a.FormatError(ConfigRequired("listtemplate")))
	assert.Equal(t, "document: document not found (path=a.md)", a.FormatError(DocumentNotFound("a.md")))

	var buf bytes.Buffer
	code := a.Report(&buf, DocumentNotFound("missing.md"))
	assert.Equal(t, 3, code)
	assert.Equal(t, "document: document not found (path=missing.md)\n", buf.String())
}
