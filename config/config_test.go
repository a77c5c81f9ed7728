package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/quadopt/config"
	"github.com/sarchlab/quadopt/dag"
)

var _ = Describe("Config", func() {
	It("should default to the classic file names", func() {
		c := config.Default()
		Expect(c.Input).To(Equal("quick_ext.json"))
		Expect(c.Output).To(Equal("blkopt.json"))
		Expect(c.DAG).To(Equal("DAG.txt"))
		Expect(c.Validate()).To(Succeed())
	})

	It("should read YAML over the defaults", func() {
		c := config.Default()
		Expect(c.Decode(strings.NewReader("input: in.json\nverify: true\ntrials: 8\n"))).To(Succeed())

		Expect(c.Input).To(Equal("in.json"))
		Expect(c.Output).To(Equal("blkopt.json"))
		Expect(c.Verify).To(BeTrue())
		Expect(c.Trials).To(Equal(8))
	})

	It("should accept an empty file", func() {
		c := config.Default()
		Expect(c.Decode(strings.NewReader(""))).To(Succeed())
		Expect(c).To(Equal(config.Default()))
	})

	It("should reject unknown keys", func() {
		c := config.Default()
		Expect(c.Decode(strings.NewReader("inptu: x.json\n"))).NotTo(Succeed())
	})

	It("should let the environment override the file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "quadopt.yaml")
		Expect(os.WriteFile(path, []byte("output: file.json\nlog_level: debug\n"), 0o644)).To(Succeed())

		GinkgoT().Setenv(config.EnvOutput, "env.json")
		GinkgoT().Setenv(config.EnvVerify, "true")

		c, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Output).To(Equal("env.json"))
		Expect(c.Verify).To(BeTrue())
		Expect(c.LogLevel).To(Equal("debug"))
	})

	It("should let the environment turn verification off", func() {
		path := filepath.Join(GinkgoT().TempDir(), "quadopt.yaml")
		Expect(os.WriteFile(path, []byte("verify: true\n"), 0o644)).To(Succeed())

		GinkgoT().Setenv(config.EnvVerify, "false")

		c, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Verify).To(BeFalse())
	})

	It("should keep the file setting when the environment is silent", func() {
		path := filepath.Join(GinkgoT().TempDir(), "quadopt.yaml")
		Expect(os.WriteFile(path, []byte("verify: true\n"), 0o644)).To(Succeed())

		c, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Verify).To(BeTrue())
	})

	It("should fail on a missing file", func() {
		_, err := config.Load(filepath.Join(GinkgoT().TempDir(), "none.yaml"))
		Expect(err).To(HaveOccurred())
	})

	It("should reject a bad log level", func() {
		c := config.Default()
		c.LogLevel = "loud"
		Expect(c.Validate()).NotTo(Succeed())
	})

	DescribeTable("parses log levels",
		func(name string, want slog.Level) {
			l, err := config.ParseLevel(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(l).To(Equal(want))
		},
		Entry("trace", "trace", dag.LevelTrace),
		Entry("debug", "debug", slog.LevelDebug),
		Entry("info", "INFO", slog.LevelInfo),
		Entry("warn", "warn", slog.LevelWarn),
	)
})
