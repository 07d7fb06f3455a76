package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"nbm/internal/nbm"
	"nbm/internal/testutil"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: " yes \n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false},
		{input: "y", want: true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got := confirm(&out, strings.NewReader(tt.input), "Proceed?")
			if got != tt.want {
				t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if out.String() != "Proceed? [y/N] " {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestPrintResult(t *testing.T) {
	color.NoColor = true

	root := t.TempDir()
	file := testutil.WriteFile(t, filepath.Join(root, "notes.txt"), "notes", testutil.BaseTime)
	docs := testutil.WriteTree(t, filepath.Join(root, "docs"), map[string]string{"a.txt": "a"})

	f, err := nbm.NewFileResource(file, filepath.Join(root, "bk.txt"))
	if err != nil {
		t.Fatal(err)
	}
	d, err := nbm.NewDirResource(docs, filepath.Join(root, "bk"), false)
	if err != nil {
		t.Fatal(err)
	}
	if res := d.Backup(nbm.CopyOptions{}); res.Outcome != nbm.Copied {
		t.Fatalf("first Backup() = %+v", res)
	}

	tests := []struct {
		name string
		r    nbm.Resource
		res  nbm.Result
		want string
	}{
		{
			name: "copied file",
			r:    f,
			res:  nbm.Result{Outcome: nbm.Copied, Copied: 1},
			want: "[0] notes.txt copied\n",
		},
		{
			name: "unchanged file",
			r:    f,
			res:  nbm.Result{Outcome: nbm.Skipped, Skipped: 1},
			want: "[0] notes.txt unchanged\n",
		},
		{
			name: "failed file",
			r:    f,
			res:  nbm.Result{Outcome: nbm.Failed, Failed: 1, Err: errors.New("disk full")},
			want: "[0] notes.txt cannot be copied: disk full\n",
		},
		{
			name: "directory counters",
			r:    d,
			res:  nbm.Result{Outcome: nbm.Copied, Copied: 2, Skipped: 3},
			want: "[0] docs copied (2 copied, 3 unchanged, 0 failed)\n",
		},
		{
			name: "unchanged directory",
			r:    d,
			res:  d.Backup(nbm.CopyOptions{}),
			want: "[0] docs unchanged (0 copied, 1 unchanged, 0 failed)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			printResult(&out, 0, tt.r, tt.res)
			if out.String() != tt.want {
				t.Errorf("printResult() = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestPrintMention(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	printMention(&out, "* [0] - \"work\" | 2 elements\n  [1] - \"home\" | 0 elements")

	want := "* [0] - \"work\" | 2 elements\n  [1] - \"home\" | 0 elements\n"
	if out.String() != want {
		t.Errorf("printMention() = %q, want %q", out.String(), want)
	}
}
