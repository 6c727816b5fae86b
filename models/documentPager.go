package models

import (
	"bytes"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DocumentPager counts and extracts pages of a multi-page source document.
// Pages are 0-based.
type DocumentPager interface {
	PageCount(source []byte) (int, error)
	ExtractPage(source []byte, page int, w io.Writer) error
}

func init() {
	// pdfcpu otherwise creates a config dir under the user's home on first use.
	api.DisableConfigDir()
}

// PdfcpuPager splits PDF documents with pdfcpu.
type PdfcpuPager struct {
	Conf *model.Configuration
}

func (p PdfcpuPager) conf() *model.Configuration {
	if p.Conf != nil {
		return p.Conf
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func (p PdfcpuPager) PageCount(source []byte) (int, error) {
	return api.PageCount(bytes.NewReader(source), p.conf())
}

// ExtractPage writes a standalone single-page PDF holding page of source.
func (p PdfcpuPager) ExtractPage(source []byte, page int, w io.Writer) error {
	return api.Trim(bytes.NewReader(source), w, []string{strconv.Itoa(page + 1)}, p.conf())
}
