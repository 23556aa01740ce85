package preprocess

import (
	"errors"
	"testing"
)

func TestProcess(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		defines map[string]string
		want    string
	}{
		{
			name: "plain",
			src:  "a\nb",
			want: "a\nb",
		},
		{
			name:    "ifdef",
			src:     "#ifdef HAS_FILL\nfill\n#else\nnofill\n#endif",
			defines: map[string]string{"HAS_FILL": "1"},
			want:    "fill",
		},
		{
			name: "ifndef",
			src:  "#ifndef HAS_FILL\nnofill\n#endif",
			want: "nofill",
		},
		{
			name:    "elif chain",
			src:     "#if defined(A)\na\n#elif defined(B)\nb\n#elif defined(C)\nc\n#else\nnone\n#endif",
			defines: map[string]string{"B": "1", "C": "1"},
			want:    "b",
		},
		{
			name: "else when nothing matched",
			src:  "#if A\na\n#elif B\nb\n#else\nnone\n#endif",
			want: "none",
		},
		{
			name:    "zero macro is false",
			src:     "#if A\na\n#else\nnot a\n#endif",
			defines: map[string]string{"A": "0"},
			want:    "not a",
		},
		{
			name:    "defined zero macro",
			src:     "#if defined A\na\n#endif",
			defines: map[string]string{"A": "0"},
			want:    "a",
		},
		{
			name:    "operators",
			src:     "#if (A || B) && !C\nyes\n#endif\n#if !(A && B)\nno\n#endif",
			defines: map[string]string{"A": "1", "B": "1"},
			want:    "yes",
		},
		{
			name: "integer literals",
			src:  "#if 0\nzero\n#endif\n#if 2\ntwo\n#endif",
			want: "two",
		},
		{
			name: "nested inactive parent",
			src:  "#if 0\n#if 1\ninner\n#else\nelse\n#endif\n#endif\nafter",
			want: "after",
		},
		{
			name: "define and undef",
			src:  "#define X\n#ifdef X\nx\n#endif\n#undef X\n#ifdef X\nstill\n#endif",
			want: "x",
		},
		{
			name: "define with value",
			src:  "#define MODE 0\n#if MODE\non\n#else\noff\n#endif",
			want: "off",
		},
		{
			name: "define ignored when inactive",
			src:  "#if 0\n#define X\n#endif\n#ifdef X\nx\n#endif",
			want: "",
		},
		{
			name:    "indented directives",
			src:     "fn f() {\n    #ifdef A\n    a();\n    #endif\n}",
			defines: map[string]string{"A": "1"},
			want:    "fn f() {\n    a();\n}",
		},
		{
			name: "crlf",
			src:  "#ifdef A\r\na\r\n#endif\r\nb",
			want: "b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Process(tt.src, tt.defines)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProcessDoesNotMutateDefines(t *testing.T) {
	defines := map[string]string{"A": "1"}
	if _, err := Process("#undef A\n#define B", defines); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, ok := defines["A"]; !ok {
		t.Errorf("A was removed from caller map")
	}
	if _, ok := defines["B"]; ok {
		t.Errorf("B was added to caller map")
	}
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"endif without if", "#endif", ErrUnbalanced},
		{"else without if", "#else", ErrUnbalanced},
		{"elif without if", "#elif A", ErrUnbalanced},
		{"missing endif", "#ifdef A\na", ErrUnbalanced},
		{"else after else", "#if A\n#else\n#else\n#endif", ErrElseAfterElse},
		{"elif after else", "#if A\n#else\n#elif B\n#endif", ErrElseAfterElse},
		{"empty if", "#if\n#endif", ErrMalformed},
		{"unclosed paren", "#if (A\n#endif", ErrMalformed},
		{"dangling operator", "#if A &&\n#endif", ErrMalformed},
		{"bad character", "#if A == B\n#endif", ErrMalformed},
		{"ifdef without name", "#ifdef\n#endif", ErrMalformed},
		{"define without name", "#define", ErrMalformed},
		{"trailing token", "#if A B\n#endif", ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Process(tt.src, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
