package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
)

func TestParseVCSKind(t *testing.T) {
	tests := []struct {
		tag      string
		expected model.VCSKind
	}{
		{tag: "git", expected: model.VCSGit},
		{tag: "GIT", expected: model.VCSGit},
		{tag: "svn", expected: model.VCSSubversion},
		{tag: "n/a", expected: model.VCSNone},
		{tag: "rhv", expected: model.VCSManual},
		{tag: "cvs", expected: model.VCSManual},
		{tag: "archived", expected: model.VCSArchived},
		{tag: "gitlab", expected: model.VCSUnrecognized},
		{tag: "hg", expected: model.VCSUnrecognized},
		{tag: "", expected: model.VCSUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			gt.Value(t, model.ParseVCSKind(tt.tag)).Equal(tt.expected)

			target := &model.Target{VCSTag: tt.tag}
			gt.Value(t, target.VCS()).Equal(tt.expected)
		})
	}
}
