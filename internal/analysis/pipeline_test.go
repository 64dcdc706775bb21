package analysis_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elfstat/internal/analysis"
	"elfstat/internal/disasm"
	"elfstat/internal/elfx"
	"elfstat/internal/elfx/elfxtest"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func quietOptions() analysis.Options {
	return analysis.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestRun_TwoPushes(t *testing.T) {
	path := elfxtest.WriteFile(t, "push.o", elfxtest.Spec{
		Code:    []byte{0x55, 0x55},
		Symbols: []elfxtest.Sym{{Name: "main", Value: 0, Size: 2}},
	})

	res, err := analysis.Run(analysis.Request{Path: path}, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, path, res.Filename)
	assert.Equal(t, 2, res.InstructionCount)
	assert.Equal(t, analysis.Tally{"push": 2}, res.Instructions)
	assert.Regexp(t, hexDigest, res.SHA256)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, analysis.Digest(data), res.SHA256, "digest covers the whole file")
}

func TestRun_Deterministic(t *testing.T) {
	path := elfxtest.WriteFile(t, "prologue.o", elfxtest.Spec{
		Code: []byte{0x55, 0x48, 0x89, 0xe5, 0x31, 0xc0, 0x5d, 0xc3},
	})

	first, err := analysis.Run(analysis.Request{Path: path}, quietOptions())
	require.NoError(t, err)
	second, err := analysis.Run(analysis.Request{Path: path}, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.InstructionCount, first.Instructions.Sum())
}

func TestRun_EmptySection(t *testing.T) {
	path := elfxtest.WriteFile(t, "empty.o", elfxtest.Spec{Code: []byte{}})

	res, err := analysis.Run(analysis.Request{Path: path}, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, res.InstructionCount)
	assert.Empty(t, res.Instructions)

	var buf bytes.Buffer
	require.NoError(t, res.WriteJSON(&buf, false))
	assert.Contains(t, buf.String(), `"instructions":{}`)
}

func TestRun_StrippedBinary(t *testing.T) {
	path := elfxtest.WriteFile(t, "stripped.o", elfxtest.Spec{Code: []byte{0x90, 0xc3}})

	var logs bytes.Buffer
	opts := analysis.Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))}

	res, err := analysis.Run(analysis.Request{Path: path}, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.InstructionCount)
	assert.Contains(t, logs.String(), "stripped")
	assert.NotContains(t, logs.String(), "Symbol located")
}

func TestRun_SymbolLogged(t *testing.T) {
	path := elfxtest.WriteFile(t, "sym.o", elfxtest.Spec{
		Code:    []byte{0x90, 0x90, 0xc3},
		Symbols: []elfxtest.Sym{{Name: "start", Value: 0}, {Name: "main", Value: 1, Size: 2}},
	})

	var logs bytes.Buffer
	opts := analysis.Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))}

	_, err := analysis.Run(analysis.Request{Path: path}, opts)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "Symbol located")
	assert.Contains(t, logs.String(), "offset=0x1")
}

func TestRun_RunIDOnEveryLine(t *testing.T) {
	path := elfxtest.WriteFile(t, "nop.o", elfxtest.Spec{Code: []byte{0x90}})

	var logs bytes.Buffer
	opts := analysis.Options{
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
		RunID:  "01J0000000000000000000TEST",
	}

	_, err := analysis.Run(analysis.Request{Path: path}, opts)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Contains(t, line, "run=01J0000000000000000000TEST")
	}
}

func TestRun_UndecodableBytes(t *testing.T) {
	tests := []struct {
		name       string
		code       []byte
		wantOffset uint64
		wantTally  analysis.Tally
	}{
		{
			name:       "truncated call at end",
			code:       []byte{0x55, 0x55, 0xe8},
			wantOffset: 2,
			wantTally:  analysis.Tally{"push": 2},
		},
		{
			name:       "endbr64 mid section",
			code:       []byte{0x55, 0x48, 0x89, 0xe5, 0xf3, 0x0f, 0x1e, 0xfa, 0x5d, 0xc3},
			wantOffset: 4,
			wantTally:  analysis.Tally{"push": 1, "mov": 1},
		},
		{
			name:       "endbr64 first",
			code:       []byte{0xf3, 0x0f, 0x1e, 0xfa, 0x55, 0xc3},
			wantOffset: 0,
			wantTally:  analysis.Tally{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := elfxtest.WriteFile(t, "bad.o", elfxtest.Spec{Code: tt.code})

			res, err := analysis.Run(analysis.Request{Path: path}, quietOptions())
			require.Error(t, err, "undecodable bytes fail the run by default")
			assert.Nil(t, res)
			assert.ErrorIs(t, err, disasm.ErrDecode)

			var logs bytes.Buffer
			opts := analysis.Options{Logger: slog.New(slog.NewTextHandler(&logs, nil)), Partial: true}
			a, err := analysis.Analyze(analysis.Request{Path: path}, opts)
			require.NoError(t, err)
			require.NotNil(t, a.Stopped)
			assert.Equal(t, tt.wantOffset, a.Stopped.Offset)
			assert.Equal(t, len(tt.code)-int(tt.wantOffset), a.Stopped.Remaining)

			assert.Equal(t, tt.wantTally, a.Result.Instructions)
			assert.Equal(t, a.Result.Instructions.Sum(), a.Result.InstructionCount,
				"only decoded instructions are counted")
			assert.Len(t, a.Stream, a.Result.InstructionCount)
			for _, bogus := range []string{"rep", "cli", "(bad)"} {
				assert.NotContains(t, a.Result.Instructions, bogus)
			}
			assert.Contains(t, logs.String(), "Stopped at undecodable instruction")
		})
	}
}

func TestRun_PartialWithoutErrors(t *testing.T) {
	path := elfxtest.WriteFile(t, "ok.o", elfxtest.Spec{Code: []byte{0x55, 0xc3}})

	opts := quietOptions()
	opts.Partial = true
	a, err := analysis.Analyze(analysis.Request{Path: path}, opts)
	require.NoError(t, err)
	assert.Nil(t, a.Stopped)
	assert.Equal(t, 2, a.Result.InstructionCount)
}

func TestRun_Errors(t *testing.T) {
	notELF := elfxtest.WriteRaw(t, "plain.txt", []byte("hello, world"))
	noText := elfxtest.WriteFile(t, "init.o", elfxtest.Spec{SectionName: ".init", Code: []byte{0xc3}})

	tests := []struct {
		name    string
		path    string
		opts    func(*analysis.Options)
		wantErr error
	}{
		{
			name:    "missing file",
			path:    filepath.Join(t.TempDir(), "nope"),
			wantErr: elfx.ErrContainer,
		},
		{
			name:    "not an ELF file",
			path:    notELF,
			wantErr: elfx.ErrContainer,
		},
		{
			name:    "no code section",
			path:    noText,
			wantErr: elfx.ErrSectionNotFound,
		},
		{
			name:    "invalid mode",
			path:    noText,
			opts:    func(o *analysis.Options) { o.Mode = 12 },
			wantErr: disasm.ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := quietOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			res, err := analysis.Run(analysis.Request{Path: tt.path}, opts)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRun_AlternateSection(t *testing.T) {
	path := elfxtest.WriteFile(t, "init.o", elfxtest.Spec{SectionName: ".init", Code: []byte{0x90, 0xc3}})

	opts := quietOptions()
	opts.Section = ".init"
	res, err := analysis.Run(analysis.Request{Path: path}, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.InstructionCount)
}

func TestAnalyze_AddressMode(t *testing.T) {
	path := elfxtest.WriteFile(t, "addr.o", elfxtest.Spec{Code: []byte{0x90, 0x90}})

	opts := quietOptions()
	a, err := analysis.Analyze(analysis.Request{Path: path}, opts)
	require.NoError(t, err)
	assert.Equal(t, a.Section.Off, a.Base)
	assert.Equal(t, a.Section.Off, a.Stream[0].VA)

	opts.Address = analysis.AddressVA
	b, err := analysis.Analyze(analysis.Request{Path: path}, opts)
	require.NoError(t, err)
	assert.Equal(t, uint64(elfxtest.TextAddr), b.Base)
	assert.Equal(t, uint64(elfxtest.TextAddr+1), b.Stream[1].VA)

	assert.Equal(t, a.Result, b.Result, "addresses never change the report")
}

func TestParseAddressMode(t *testing.T) {
	for in, want := range map[string]analysis.AddressMode{
		"":       analysis.AddressOffset,
		"offset": analysis.AddressOffset,
		"VADDR":  analysis.AddressVA,
		"va":     analysis.AddressVA,
	} {
		got, err := analysis.ParseAddressMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := analysis.ParseAddressMode("physical")
	assert.Error(t, err)
}

func TestResultWriteJSON(t *testing.T) {
	res := &analysis.Result{
		Filename:         "/bin/true",
		SHA256:           strings.Repeat("ab", 32),
		InstructionCount: 3,
		Instructions:     analysis.Tally{"push": 2, "ret": 1},
	}

	var buf bytes.Buffer
	require.NoError(t, res.WriteJSON(&buf, false))

	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Equal(t, 1, strings.Count(out, "\n"), "compact output is a single line")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.ElementsMatch(t, []string{"filename", "sha256", "instruction_count", "instructions"}, keys(decoded))

	buf.Reset()
	require.NoError(t, res.WriteJSON(&buf, true))
	assert.Greater(t, strings.Count(buf.String(), "\n"), 1)
}

func TestResultMarkdown(t *testing.T) {
	res := &analysis.Result{
		Filename:         "a.out",
		SHA256:           strings.Repeat("0", 64),
		InstructionCount: 4,
		Instructions:     analysis.Tally{"push": 2, "ret": 1, "nop": 1},
	}

	md := res.Markdown()
	assert.Contains(t, md, "`a.out`")
	assert.Contains(t, md, "| `push` | 2 | 50.00% |")
	assert.Contains(t, md, "**Instructions:** 4")
	assert.Less(t, strings.Index(md, "`push`"), strings.Index(md, "`ret`"))

	empty := &analysis.Result{Filename: "a.out", Instructions: analysis.Tally{}}
	assert.Contains(t, empty.Markdown(), "No instructions decoded.")
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
