// Package blockfile reads and writes the JSON container that carries the
// basic blocks of a program together with their live-out sets.
//
// The layout is
//
//	{
//	    "summary": {"total_blocks": 2},
//	    "blocks": {
//	        "0": {"code": ["a = b + c"], "out": ["a"]},
//	        "1": {"code": ["HALT"], "out": []}
//	    }
//	}
//
// Fields the package does not know about are kept and written back unchanged.
package blockfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMissingBlock is returned when the summary announces a block that the
// container does not hold.
var ErrMissingBlock = errors.New("missing block")

// File is a decoded container.
type File struct {
	Summary Summary
	Blocks  map[string]*Block

	extra map[string]json.RawMessage
}

// Summary is the "summary" object of a container.
type Summary struct {
	TotalBlocks int

	extra map[string]json.RawMessage
}

// Block is one basic block: its code in textual three-address form and the
// names live on exit.
type Block struct {
	Code []string
	Out  []string

	extra map[string]json.RawMessage
}

// Decode reads a container.
func Decode(r io.Reader) (*File, error) {
	f := &File{}
	if err := json.NewDecoder(r).Decode(f); err != nil {
		return nil, fmt.Errorf("decode block file: %w", err)
	}
	return f, nil
}

// Load reads the container stored at path.
func Load(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open block file: %w", err)
	}
	defer in.Close()

	return Decode(in)
}

// Encode writes the container with four-space indentation.
func (f *File) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode block file: %w", err)
	}
	return nil
}

// Save writes the container to path, replacing any existing file.
func (f *File) Save(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create block file: %w", err)
	}

	if err := f.Encode(out); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// Block returns block i.
func (f *File) Block(i int) (*Block, error) {
	b, ok := f.Blocks[strconv.Itoa(i)]
	if !ok || b == nil {
		return nil, fmt.Errorf("%w: %d", ErrMissingBlock, i)
	}
	return b, nil
}

// Lines returns the code lines with surrounding blanks and quotes removed.
func (b *Block) Lines() []string {
	return cleanAll(b.Code)
}

// LiveOut returns the live-out names with surrounding blanks and quotes
// removed.
func (b *Block) LiveOut() []string {
	return cleanAll(b.Out)
}

func cleanAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, clean(s))
	}
	return out
}

func clean(s string) string {
	return strings.Trim(strings.Trim(s, `"`), " ")
}

func (f *File) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if raw, ok := fields["summary"]; ok {
		if err := json.Unmarshal(raw, &f.Summary); err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		delete(fields, "summary")
	}

	if raw, ok := fields["blocks"]; ok {
		if err := json.Unmarshal(raw, &f.Blocks); err != nil {
			return fmt.Errorf("blocks: %w", err)
		}
		delete(fields, "blocks")
	}

	f.extra = fields
	return nil
}

func (f *File) MarshalJSON() ([]byte, error) {
	fields := copyExtra(f.extra)

	if err := putField(fields, "summary", f.Summary); err != nil {
		return nil, err
	}

	blocks := f.Blocks
	if blocks == nil {
		blocks = map[string]*Block{}
	}
	if err := putField(fields, "blocks", blocks); err != nil {
		return nil, err
	}

	return marshal(fields)
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if raw, ok := fields["total_blocks"]; ok {
		if err := json.Unmarshal(raw, &s.TotalBlocks); err != nil {
			return fmt.Errorf("total_blocks: %w", err)
		}
		delete(fields, "total_blocks")
	}

	s.extra = fields
	return nil
}

func (s Summary) MarshalJSON() ([]byte, error) {
	fields := copyExtra(s.extra)
	if err := putField(fields, "total_blocks", s.TotalBlocks); err != nil {
		return nil, err
	}
	return marshal(fields)
}

func (b *Block) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if raw, ok := fields["code"]; ok {
		if err := json.Unmarshal(raw, &b.Code); err != nil {
			return fmt.Errorf("code: %w", err)
		}
		delete(fields, "code")
	}

	if raw, ok := fields["out"]; ok {
		if err := json.Unmarshal(raw, &b.Out); err != nil {
			return fmt.Errorf("out: %w", err)
		}
		delete(fields, "out")
	}

	b.extra = fields
	return nil
}

func (b *Block) MarshalJSON() ([]byte, error) {
	fields := copyExtra(b.extra)

	code := b.Code
	if code == nil {
		code = []string{}
	}
	if err := putField(fields, "code", code); err != nil {
		return nil, err
	}

	out := b.Out
	if out == nil {
		out = []string{}
	}
	if err := putField(fields, "out", out); err != nil {
		return nil, err
	}

	return marshal(fields)
}

// marshal is json.Marshal without HTML escaping, so that relational operators
// in code lines stay readable.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func copyExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	fields := make(map[string]json.RawMessage, len(extra)+2)
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

func putField(fields map[string]json.RawMessage, key string, v any) error {
	raw, err := marshal(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	fields[key] = raw
	return nil
}
