package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
)

func TestNewRevisionDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		kind    model.RevisionKind
		value   string
		wantErr bool
	}{
		{name: "branch with name", kind: model.RevisionBranch, value: "main"},
		{name: "branch without name follows default branch", kind: model.RevisionBranch, value: ""},
		{name: "commit hash", kind: model.RevisionCommit, value: "0123456789abcdef0123456789abcdef01234567"},
		{name: "commit without hash", kind: model.RevisionCommit, value: "", wantErr: true},
		{name: "revision number", kind: model.RevisionNumber, value: "1234"},
		{name: "revision number zero", kind: model.RevisionNumber, value: "0", wantErr: true},
		{name: "revision number negative", kind: model.RevisionNumber, value: "-3", wantErr: true},
		{name: "revision number not numeric", kind: model.RevisionNumber, value: "r12", wantErr: true},
		{name: "tag", kind: model.RevisionTag, value: "v2.0"},
		{name: "tag without name", kind: model.RevisionTag, value: "", wantErr: true},
		{name: "tag with blank name", kind: model.RevisionTag, value: "   ", wantErr: true},
		{name: "unknown kind", kind: model.RevisionKind(99), value: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rev, err := model.NewRevisionDescriptor("src-1", tt.kind, tt.value)
			if tt.wantErr {
				gt.Error(t, err)
				gt.True(t, errors.Is(err, types.ErrInvalidDescriptor))
				return
			}

			gt.NoError(t, err)
			gt.Value(t, rev.Kind()).Equal(tt.kind)
			gt.Value(t, rev.AnchorID()).Equal("src-1")

			value, ok := rev.Value()
			gt.Value(t, value).Equal(tt.value)
			gt.Value(t, ok).Equal(tt.value != "")
		})
	}
}

func TestRevisionDescriptor_DefaultBranch(t *testing.T) {
	rev, err := model.NewRevisionDescriptor("src-1", model.RevisionBranch, "")
	gt.NoError(t, err)
	gt.True(t, rev.IsDefaultBranch())
	gt.String(t, rev.String()).Equal("branch:HEAD")

	named, err := model.NewRevisionDescriptor("src-1", model.RevisionBranch, "develop")
	gt.NoError(t, err)
	gt.False(t, named.IsDefaultBranch())
	gt.String(t, named.String()).Equal("branch:develop")
}

func TestParseRevisionKind(t *testing.T) {
	tests := []struct {
		input   string
		want    model.RevisionKind
		wantErr bool
	}{
		{input: "branch", want: model.RevisionBranch},
		{input: "commit", want: model.RevisionCommit},
		{input: "revnum", want: model.RevisionNumber},
		{input: "TAG", want: model.RevisionTag},
		{input: "label", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := model.ParseRevisionKind(tt.input)
			if tt.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)
			gt.Value(t, kind).Equal(tt.want)
			gt.String(t, kind.String()).Equal(revisionName(tt.want))
		})
	}
}

func revisionName(k model.RevisionKind) string {
	switch k {
	case model.RevisionBranch:
		return "branch"
	case model.RevisionCommit:
		return "commit"
	case model.RevisionNumber:
		return "revnum"
	default:
		return "tag"
	}
}
