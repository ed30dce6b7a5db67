package workflow_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/airbusgeo/stac-ingester/common"
	"github.com/airbusgeo/stac-ingester/service"
	"github.com/airbusgeo/stac-ingester/stac"
	"github.com/airbusgeo/stac-ingester/workflow"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Workflow", func() {
	var (
		wf        *workflow.Workflow
		fileQueue *MokePublisher
		request   common.DiscoveryRequest
	)

	putFiles := func(bucket, prefix string, n int) {
		for i := 0; i < n; i++ {
			store.Put(bucket, fmt.Sprintf("%sno2_%d_2021%02d.tif", prefix, i, i%12+1), []byte("tif"))
		}
	}

	BeforeEach(func() {
		fileQueue = &MokePublisher{}
		request = common.DiscoveryRequest{Bucket: "bucket", Prefix: "no2/", FilenameRegex: `^no2/.*\.tif$`}
	})

	Describe("Running a discovery", func() {
		Context("with a file queue", func() {
			BeforeEach(func() {
				wf = workflow.NewWorkflow(store, builder, offloader, fileQueue)
			})

			Context("when the prefix holds more files than a batch", func() {
				BeforeEach(func() {
					putFiles("bucket", "no2/", 2000)
					store.Put("bucket", "no2/readme.md", []byte("readme"))
				})
				It("should publish every file once", func() {
					n, results, err := wf.RunDiscovery(ctx, request)
					Expect(err).NotTo(HaveOccurred())
					Expect(n).To(Equal(2000))
					Expect(results).To(BeEmpty())
					Expect(fileQueue.messages).To(HaveLen(2000))

					seen := map[string]bool{}
					for _, m := range fileQueue.messages {
						var ev map[string]any
						Expect(json.Unmarshal(m, &ev)).To(Succeed())
						Expect(ev["filename_regex"]).To(Equal(`^no2/.*\.tif$`))
						Expect(ev["collection"]).To(Equal("no2"))
						url := ev["remote_fileurl"].(string)
						Expect(seen).NotTo(HaveKey(url))
						seen[url] = true
					}
				})
			})

			Context("when the prefix is empty", func() {
				It("should return a not found error", func() {
					request.Prefix = "empty/"
					_, _, err := wf.RunDiscovery(ctx, request)
					Expect(err).To(HaveOccurred())
					Expect(err.Error()).To(ContainSubstring("No files found"))
				})
			})
		})

		Context("without file queue", func() {
			BeforeEach(func() {
				wf = workflow.NewWorkflow(store, builder, offloader, nil)
				store.Put("sync", "no2/no2_202101.tif", []byte("tif"))
				store.Put("sync", "no2/no2_nodate.tif", []byte("tif"))
				request.Bucket = "sync"
				dr := common.DatetimeRangeMonth
				request.DatetimeRange = &dr
			})
			It("should handle the files", func() {
				n, results, err := wf.RunDiscovery(ctx, request)
				Expect(err).NotTo(HaveOccurred())
				Expect(n).To(Equal(2))
				Expect(results).To(HaveLen(2))

				Expect(results[0].RemoteFileURL).To(Equal("s3://sync/no2/no2_202101.tif"))
				Expect(results[0].Status).To(Equal(common.StatusDONE))
				out, ok := results[0].Output.(*stac.InlineItem)
				Expect(ok).To(BeTrue())
				Expect(out.Item.ID).To(Equal("no2_202101"))
				Expect(out.Item.Properties[common.PropStartDatetime]).To(Equal("2021-01-01T00:00:00Z"))

				Expect(results[1].Status).To(Equal(common.StatusFAILED))
				Expect(results[1].Message).NotTo(BeEmpty())
			})
		})
	})

	Describe("Handling a file", func() {
		BeforeEach(func() {
			wf = workflow.NewWorkflow(store, builder, offloader, nil)
		})
		It("should fail without retry on an invalid payload", func() {
			res := wf.HandleFile(ctx, []byte(`not json`))
			Expect(res.Status).To(Equal(common.StatusFAILED))
			Expect(res.Message).NotTo(BeEmpty())
		})
		It("should mark the invalid events as fatal", func() {
			payload := []byte(`{"collection": "c", "remote_fileurl": "s3://sync/no2/a.tif"}`)
			_, err := wf.HandleEvent(ctx, payload)
			Expect(service.Fatal(err)).To(BeTrue())
			Expect(service.Validation(err)).To(BeTrue())

			res := wf.HandleFile(ctx, payload)
			Expect(res.Status).To(Equal(common.StatusFAILED))
			Expect(res.RemoteFileURL).To(Equal("s3://sync/no2/a.tif"))
		})
		It("should classify the errors", func() {
			tmp := service.MakeTemporary(fmt.Errorf("unavailable"))
			Expect(workflow.Status(nil)).To(Equal(common.StatusDONE))
			Expect(workflow.Status(tmp)).To(Equal(common.StatusRETRY))
			Expect(workflow.Status(service.MakeFatal(tmp))).To(Equal(common.StatusFAILED))
			Expect(workflow.Status(fmt.Errorf("permanent"))).To(Equal(common.StatusFAILED))
		})
	})

	Describe("Serving http", func() {
		var srv *httptest.Server

		BeforeEach(func() {
			wf = workflow.NewWorkflow(store, builder, offloader, fileQueue)
			store.Put("http", "cog/a_2020-01-02.tif", []byte("tif"))
			srv = httptest.NewServer(wf.NewHandler())
		})
		AfterEach(func() {
			srv.Close()
		})

		post := func(path, body string) (int, string) {
			resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			b, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			return resp.StatusCode, string(b)
		}

		It("should return a batch", func() {
			code, body := post("/discovery", `{"bucket": "http", "prefix": "cog/", "execution_name": "run-1"}`)
			Expect(code).To(Equal(200))
			var batch common.DiscoveryBatch
			Expect(json.Unmarshal([]byte(body), &batch)).To(Succeed())
			Expect(batch.Objects).To(HaveLen(1))
			Expect(batch.Objects[0].Collection).To(Equal("cog"))
			Expect(batch.More()).To(BeFalse())
			Expect(body).To(ContainSubstring(`"execution_name":"run-1"`))
		})

		It("should return 404 on an empty prefix", func() {
			code, _ := post("/discovery", `{"bucket": "http", "prefix": "none/"}`)
			Expect(code).To(Equal(404))
		})

		It("should return 400 on an invalid request", func() {
			code, _ := post("/discovery", `{"prefix": "cog/"}`)
			Expect(code).To(Equal(400))
			code, _ = post("/stac", `{"collection": "c", "remote_fileurl": "s3://http/cog/a.tif"}`)
			Expect(code).To(Equal(400))
		})

		It("should return the item inline", func() {
			code, body := post("/stac", `{"collection": "cog", "remote_fileurl": "s3://http/cog/a_2020-01-02.tif", "filename_regex": ".*"}`)
			Expect(code).To(Equal(200))
			var out struct {
				Item stac.Item `json:"stac_item"`
			}
			Expect(json.Unmarshal([]byte(body), &out)).To(Succeed())
			Expect(out.Item.ID).To(Equal("a_2020-01-02"))
			Expect(out.Item.Properties[common.PropDatetime]).To(Equal("2020-01-02T00:00:00Z"))
		})

		It("should publish the files", func() {
			code, body := post("/discovery/run", `{"bucket": "http", "prefix": "cog/"}`)
			Expect(code).To(Equal(200))
			Expect(body).To(ContainSubstring(`"files":1`))
			Expect(fileQueue.messages).To(HaveLen(1))
		})
	})
})
