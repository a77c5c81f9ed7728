package blockfile_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/quadopt/blockfile"
)

const sample = `{
    "summary": {"total_blocks": 2, "source": "quick"},
    "blocks": {
        "0": {"code": ["\"a = b + c\"", " d = b + c "], "out": ["\"d\" "], "in": ["b", "c"]},
        "1": {"code": ["? a < b : L3"], "out": []}
    },
    "version": 3
}`

var _ = Describe("Block file", func() {
	var f *blockfile.File

	BeforeEach(func() {
		var err error
		f, err = blockfile.Decode(strings.NewReader(sample))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should decode the summary and the blocks", func() {
		Expect(f.Summary.TotalBlocks).To(Equal(2))
		Expect(f.Blocks).To(HaveLen(2))

		b, err := f.Block(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Lines()).To(Equal([]string{"a = b + c", "d = b + c"}))
		Expect(b.LiveOut()).To(Equal([]string{"d"}))
	})

	It("should report a missing block", func() {
		_, err := f.Block(7)
		Expect(errors.Is(err, blockfile.ErrMissingBlock)).To(BeTrue())
	})

	It("should keep fields it does not know about", func() {
		b, _ := f.Block(0)
		b.Code = []string{"d = b + c"}

		var buf bytes.Buffer
		Expect(f.Encode(&buf)).To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring(`"version": 3`))
		Expect(out).To(ContainSubstring(`"source": "quick"`))
		Expect(out).To(ContainSubstring(`"in": [`))
		Expect(out).To(ContainSubstring("\n    \"blocks\": {"))
		Expect(out).To(ContainSubstring(`"? a < b : L3"`))

		again, err := blockfile.Decode(&buf)
		Expect(err).NotTo(HaveOccurred())
		b, err = again.Block(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Code).To(Equal([]string{"d = b + c"}))
	})

	It("should write empty lists rather than null", func() {
		f.Blocks["1"].Code = nil

		var buf bytes.Buffer
		Expect(f.Encode(&buf)).To(Succeed())
		Expect(buf.String()).NotTo(ContainSubstring("null"))
	})

	It("should save and load a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "blkopt.json")
		Expect(f.Save(path)).To(Succeed())

		loaded, err := blockfile.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Summary.TotalBlocks).To(Equal(2))
		Expect(loaded.Blocks).To(HaveKey("1"))
	})

	It("should reject malformed input", func() {
		_, err := blockfile.Decode(strings.NewReader(`{"blocks": [1, 2]}`))
		Expect(err).To(HaveOccurred())
	})
})
