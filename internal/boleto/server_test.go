package boleto

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/boleto-extractor/internal/export"
	"github.com/zombor/boleto-extractor/internal/extraction"
)

// multipartBody builds a multipart form with the given files and fields.
func multipartBody(files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, data := range files {
		part, err := writer.CreateFormFile("files", name)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
	}
	for k, v := range fields {
		Expect(writer.WriteField(k, v)).To(Succeed())
	}
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		extractor *mockExtractor
		server    *Server
		auth      BasicAuth

		recorder *httptest.ResponseRecorder
		request  *http.Request
	)

	BeforeEach(func() {
		extractor = &mockExtractor{}
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		factory := func(apiKey string) (extraction.Extractor, error) {
			if apiKey == "" {
				return nil, extraction.ErrMissingCredential
			}
			return extractor, nil
		}
		server = NewServer(NewService(factory), auth)
		recorder = httptest.NewRecorder()
		server.ServeHTTP(recorder, request)
	})

	Describe("POST /api/extract", func() {
		When("uploading a document that extracts successfully", func() {
			BeforeEach(func() {
				extractor.results = []*extraction.BoletoData{
					{
						Empreendimento: "Shopping Center Norte",
						Loja:           "42",
						ValorTotal:     1500,
						Itens:          []extraction.LineItem{{Item: "Aluguel", Valor: 1500}},
					},
				}
				body, contentType := multipartBody(
					map[string][]byte{"boleto.png": pngFile("boleto.png").Data},
					map[string]string{"api_key": "test-key"},
				)
				request = httptest.NewRequest("POST", "/api/extract", body)
				request.Header.Set("Content-Type", contentType)
			})

			It("responds with the workbook download", func() {
				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(recorder.Header().Get("Content-Type")).To(Equal(export.ContentType))
				Expect(recorder.Header().Get("Content-Disposition")).To(ContainSubstring("boletos_gemini.xlsx"))
				Expect(recorder.Header().Get("X-Extraction-Warnings")).To(Equal("0"))
			})

			It("returns a readable workbook with both sheets", func() {
				f, err := excelize.OpenReader(bytes.NewReader(recorder.Body.Bytes()))
				Expect(err).NotTo(HaveOccurred())
				defer f.Close()

				Expect(f.GetSheetList()).To(ConsistOf("Resumo", "Itens_Detalhados"))
				rows, err := f.GetRows("Resumo")
				Expect(err).NotTo(HaveOccurred())
				Expect(rows).To(HaveLen(2))
				Expect(rows[1][0]).To(Equal("boleto.png"))
			})
		})

		When("nothing can be extracted", func() {
			BeforeEach(func() {
				body, contentType := multipartBody(
					map[string][]byte{"rasgado.pdf": []byte("not a pdf")},
					map[string]string{"api_key": "test-key"},
				)
				request = httptest.NewRequest("POST", "/api/extract", body)
				request.Header.Set("Content-Type", contentType)
			})

			It("responds with the nothing-extracted notice instead of an artifact", func() {
				Expect(recorder.Code).To(Equal(http.StatusUnprocessableEntity))

				var resp struct {
					Notice string  `json:"notice"`
					Events []Event `json:"events"`
				}
				Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Notice).To(Equal("Nenhum dado foi extraído dos PDFs."))
				Expect(resp.Events).NotTo(BeEmpty())
			})
		})

		When("the api key is missing", func() {
			BeforeEach(func() {
				body, contentType := multipartBody(
					map[string][]byte{"boleto.png": pngFile("boleto.png").Data},
					nil,
				)
				request = httptest.NewRequest("POST", "/api/extract", body)
				request.Header.Set("Content-Type", contentType)
			})

			It("refuses with a credential error", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
				Expect(recorder.Body.String()).To(ContainSubstring("API key"))
			})

			It("never calls the extraction service", func() {
				Expect(extractor.calls).To(BeZero())
			})
		})

		When("no files are uploaded", func() {
			BeforeEach(func() {
				body, contentType := multipartBody(nil, map[string]string{"api_key": "test-key"})
				request = httptest.NewRequest("POST", "/api/extract", body)
				request.Header.Set("Content-Type", contentType)
			})

			It("responds with bad request", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
				Expect(recorder.Body.String()).To(ContainSubstring("No files"))
			})
		})
	})

	Describe("manual entry stubs", func() {
		When("posting a linha digitável", func() {
			BeforeEach(func() {
				form := url.Values{"linha_digitavel": {"23793.38128 60000.000000 00000.000000 1 00000000000000"}}
				request = httptest.NewRequest("POST", "/api/linha-digitavel", strings.NewReader(form.Encode()))
				request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			})

			It("responds not implemented with the notice", func() {
				Expect(recorder.Code).To(Equal(http.StatusNotImplemented))
				Expect(recorder.Body.String()).To(ContainSubstring("Esta funcionalidade será implementada em breve"))
			})
		})

		When("posting a código de barras", func() {
			BeforeEach(func() {
				form := url.Values{"codigo_barras": {"23791000000000000003381286000000000000000000"}}
				request = httptest.NewRequest("POST", "/api/codigo-barras", strings.NewReader(form.Encode()))
				request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			})

			It("responds not implemented with the notice", func() {
				Expect(recorder.Code).To(Equal(http.StatusNotImplemented))
				Expect(recorder.Body.String()).To(ContainSubstring("Esta funcionalidade será implementada em breve"))
			})
		})

		When("the input field is empty", func() {
			BeforeEach(func() {
				request = httptest.NewRequest("POST", "/api/linha-digitavel", strings.NewReader(""))
				request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			})

			It("responds with bad request", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("GET /", func() {
		BeforeEach(func() {
			request = httptest.NewRequest("GET", "/", nil)
		})

		It("serves the HTML interface", func() {
			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Header().Get("Content-Type")).To(ContainSubstring("text/html"))
			Expect(recorder.Body.String()).To(ContainSubstring("Extrator de Dados de Boletos"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		When("no credentials are sent", func() {
			BeforeEach(func() {
				request = httptest.NewRequest("GET", "/", nil)
			})

			It("responds unauthorized", func() {
				Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
				Expect(recorder.Header().Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
			})
		})

		When("valid credentials are sent", func() {
			BeforeEach(func() {
				request = httptest.NewRequest("GET", "/", nil)
				request.SetBasicAuth("admin", "secret")
			})

			It("serves the page", func() {
				Expect(recorder.Code).To(Equal(http.StatusOK))
			})
		})
	})
})
