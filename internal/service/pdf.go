package service

import (
	"bytes"
	"fmt"
	"strings"
)

// Minimal PDF assembly: one A4 page of Helvetica text, no layout engine.
// Enough for a printable copy of a reading passage.
const (
	pdfLineWidth   = 88 // characters per line before wrapping
	pdfMaxLines    = 52 // lines that fit one page at 12pt
	pdfTopMargin   = 800
	pdfLeftMargin  = 50
	pdfLineHeight  = 14
	pdfTitleHeight = 24
)

// renderPDF produces a single-page PDF document with the title as a heading
// followed by the wrapped body text.
func renderPDF(title, content string) []byte {
	lines := wrapText(content, pdfLineWidth)
	if len(lines) > pdfMaxLines {
		lines = lines[:pdfMaxLines]
	}

	var stream bytes.Buffer
	fmt.Fprintf(&stream, "BT /F1 16 Tf %d %d Td (%s) Tj ET\n",
		pdfLeftMargin, pdfTopMargin, escapePDFString(title))
	y := pdfTopMargin - pdfTitleHeight
	for _, line := range lines {
		fmt.Fprintf(&stream, "BT /F1 11 Tf %d %d Td (%s) Tj ET\n",
			pdfLeftMargin, y, escapePDFString(line))
		y -= pdfLineHeight
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", stream.Len(), stream.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var doc bytes.Buffer
	doc.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = doc.Len()
		fmt.Fprintf(&doc, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := doc.Len()
	fmt.Fprintf(&doc, "xref\n0 %d\n", len(objects)+1)
	doc.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&doc, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&doc, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return doc.Bytes()
}

// escapePDFString escapes PDF string delimiters and folds the UTF-8 input
// down to WinAnsi-representable bytes. Characters outside Latin-1 degrade to
// a question mark.
func escapePDFString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(byte(r))
		case '\n', '\r', '\t':
			b.WriteByte(' ')
		default:
			if r < 256 {
				b.WriteByte(byte(r))
			} else {
				b.WriteByte('?')
			}
		}
	}
	return b.String()
}

// wrapText greedily wraps words to the given width, keeping paragraph breaks.
func wrapText(s string, width int) []string {
	var out []string
	for _, paragraph := range strings.Split(s, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}

		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) > width {
				out = append(out, line)
				line = w
				continue
			}
			line += " " + w
		}
		out = append(out, line)
	}
	return out
}

// pdfFilename derives a safe download filename from the text title.
func pdfFilename(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "text"
	}
	return name + ".pdf"
}
