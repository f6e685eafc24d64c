package logfields

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"File", KeyFile, "talk.md", File("talk.md")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Field", KeyField, "title", Field("title")},
		{"Kind", KeyKind, "diagram", Kind("diagram")},
		{"Stage", KeyStage, "recent", Stage("recent")},
		{"ListType", KeyListType, "grants", ListType("grants")},
		{"Template", KeyTemplate, "talk", Template("talk")},
		{"RequestID", KeyRequestID, "rid", RequestID("rid")},
		{"Socket", KeySocket, "/run/lamd.sock", Socket("/run/lamd.sock")},
		{"Repository", KeyRepo, "_snippets", Repository("_snippets")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.attrKey, tc.attr.Key)
			assert.Equal(t, tc.attrVal, tc.attr.Value.String())
		})
	}
}

func TestErrorHelper(t *testing.T) {
	assert.Equal(t, "", Error(nil).Value.String())
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
	assert.Equal(t, int64(3), Records(3).Value.Int64())
}
