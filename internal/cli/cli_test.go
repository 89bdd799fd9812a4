package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/cli"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"sigs.k8s.io/yaml"
)

var _ = Describe("cli", func() {
	var (
		server   *httptest.Server
		requests []*http.Request
		out      *bytes.Buffer
	)

	BeforeEach(func() {
		requests = nil
		out = &bytes.Buffer{}
		id := "run-1"
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests = append(requests, r)
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/api/v1/pipeline/runs":
				_ = json.NewEncoder(w).Encode(api.RunResponse{Success: true, RunID: &id, DurationMs: 12, StatusChanges: api.StatusChanges{Closed: 1}})
			case "/api/v1/pipeline/webhook":
				_ = json.NewEncoder(w).Encode(api.WebhookResponse{Success: false, RunID: &id, Errors: 2})
			case "/api/v1/pipeline/status":
				_ = json.NewEncoder(w).Encode(api.StatusResponse{
					Runs: []api.Run{{ID: id, RunType: api.RunTypeManual, Status: api.RunStatusSuccess, StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}},
					Stats: api.ExamStats{
						TotalActive:    3,
						Open:           2,
						ByOrganization: map[string]int64{"UPSC": 1, "SSC": 2},
					},
				})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		GinkgoT().Setenv("CRON_SECRET", "s3cret")
	})

	AfterEach(func() {
		server.Close()
	})

	globals := func(output string) cli.GlobalOptions {
		return cli.GlobalOptions{
			ConfigFilePath: filepath.Join(GinkgoT().TempDir(), "missing.yaml"),
			ServerUrl:      server.URL,
			Output:         output,
		}
	}

	Context("trigger", func() {
		It("prints a summary", func() {
			o := &cli.TriggerOptions{GlobalOptions: globals("")}
			Expect(o.Run(context.Background(), out)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("run run-1 finished in 12ms"))
			Expect(out.String()).To(ContainSubstring("closed: 1"))
			Expect(requests).To(HaveLen(1))
			Expect(requests[0].Header.Get("Authorization")).To(Equal("Bearer s3cret"))
		})

		It("prints json", func() {
			o := &cli.TriggerOptions{GlobalOptions: globals("json")}
			Expect(o.Run(context.Background(), out)).To(Succeed())

			var resp api.RunResponse
			Expect(json.Unmarshal(out.Bytes(), &resp)).To(Succeed())
			Expect(*resp.RunID).To(Equal("run-1"))
		})

		It("rejects an unknown run type", func() {
			o := &cli.TriggerOptions{GlobalOptions: globals(""), RunType: "webhook"}
			Expect(o.Validate(nil)).NotTo(Succeed())
		})

		It("rejects an unknown output", func() {
			o := &cli.TriggerOptions{GlobalOptions: globals("xml")}
			Expect(o.Validate(nil)).NotTo(Succeed())
		})
	})

	Context("push", func() {
		It("fails when the run did not succeed", func() {
			path := filepath.Join(GinkgoT().TempDir(), "batch.json")
			Expect(os.WriteFile(path, []byte(`{"scrapers":["ssc"],"exams":[{"exam_name":"CGL","organization":"SSC"}]}`), 0600)).To(Succeed())

			o := &cli.PushOptions{GlobalOptions: globals(""), FilePath: path}
			Expect(o.Validate(nil)).To(Succeed())
			err := o.Run(context.Background(), out)
			Expect(err).NotTo(BeNil())
			Expect(out.String()).To(ContainSubstring("errors: 2"))
		})

		It("rejects a batch with unknown fields", func() {
			path := filepath.Join(GinkgoT().TempDir(), "batch.json")
			Expect(os.WriteFile(path, []byte(`{"exams":[],"extra":true}`), 0600)).To(Succeed())

			_, err := cli.ReadWebhookFile(path)
			Expect(err).NotTo(BeNil())
			Expect(err.Error()).To(ContainSubstring("extra"))
		})

		It("requires an existing file", func() {
			o := &cli.PushOptions{GlobalOptions: globals(""), FilePath: "/does/not/exist.json"}
			Expect(o.Validate(nil)).NotTo(Succeed())
		})
	})

	Context("status", func() {
		It("prints tables", func() {
			o := &cli.StatusOptions{GlobalOptions: globals(""), Limit: 5}
			Expect(o.Run(context.Background(), out)).To(Succeed())
			Expect(requests[0].URL.Query().Get("limit")).To(Equal("5"))
			Expect(out.String()).To(ContainSubstring("ORGANIZATION"))
			Expect(out.String()).To(ContainSubstring("run-1"))
			Expect(out.String()).To(ContainSubstring("2026-01-02 03:04:05"))
		})

		It("prints yaml", func() {
			o := &cli.StatusOptions{GlobalOptions: globals("yaml"), Limit: 5}
			Expect(o.Run(context.Background(), out)).To(Succeed())

			var resp api.StatusResponse
			Expect(yaml.Unmarshal(out.Bytes(), &resp)).To(Succeed())
			Expect(resp.Stats.TotalActive).To(Equal(int64(3)))
		})

		It("rejects an out of range limit", func() {
			o := &cli.StatusOptions{GlobalOptions: globals(""), Limit: 0}
			Expect(o.Validate(nil)).NotTo(Succeed())
		})
	})
})
