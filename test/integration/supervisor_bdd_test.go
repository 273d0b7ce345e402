//go:build integration

package integration

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/heliod-project/heliconf/internal/infra"
	"github.com/heliod-project/heliconf/internal/supervisor"
	"github.com/heliod-project/heliconf/test/fixtures"
)

var _ = Describe("Daemon Supervisor", func() {
	var (
		registry *supervisor.Registry
		sup      *supervisor.Supervisor
		dir      string
	)

	BeforeEach(func() {
		logger := zap.NewNop()
		registry = supervisor.NewRegistry(logger)
		sup = supervisor.New(registry, infra.NewProcessManager(), logger)
		dir = GinkgoT().TempDir()
	})

	AfterEach(func() {
		registry.DrainKillAll()
	})

	createFake := func(variant fixtures.Variant) string {
		fake := fixtures.NewFakeHeliod(dir, "heliod")
		fake.Variant = variant
		path, err := fake.Create()
		Expect(err).NotTo(HaveOccurred())
		return path
	}

	sandboxEnv := func() []string {
		return infra.SetEnv(os.Environ(), "HOME", GinkgoT().TempDir())
	}

	Describe("Start", func() {
		Context("with a healthy daemon", func() {
			It("reaches steady state and stops cleanly", func() {
				p, reason, err := sup.Start(createFake(fixtures.WellBehaved), sandboxEnv(), time.Second)
				Expect(err).NotTo(HaveOccurred())
				Expect(reason).To(BeEmpty())
				Expect(p.Alive()).To(BeTrue())

				output, dead := sup.Stop(p, 5*time.Second)
				Expect(dead).To(BeTrue())
				Expect(output).To(ContainSubstring("shutting down"))
				Expect(registry.Len()).To(BeZero())
			})
		})

		Context("when no gamma backend exists", func() {
			It("classifies the early exit as a precondition skip", func() {
				p, reason, err := sup.Start(createFake(fixtures.NoBackend), sandboxEnv(), time.Second)
				Expect(err).NotTo(HaveOccurred())
				Expect(p).To(BeNil())
				Expect(supervisor.ReasonIsPrecondition(reason)).To(BeTrue())
				Expect(registry.Len()).To(BeZero())
			})
		})
	})

	Describe("Stop escalation", func() {
		Context("when the daemon masks SIGTERM", func() {
			It("escalates to SIGKILL on the process group", func() {
				p, reason, err := sup.Start(createFake(fixtures.IgnoresSigterm), sandboxEnv(), time.Second)
				Expect(err).NotTo(HaveOccurred())
				Expect(reason).To(BeEmpty())

				_, dead := sup.Stop(p, time.Second)
				Expect(dead).To(BeTrue())
				Expect(registry.Len()).To(BeZero())
			})
		})
	})
})
