package docpipe

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hazyhaar/docdiff/docmodel"
)

const maxXMLDepth = 256

// extractDocx reads word/document.xml from the archive. Paragraphs are
// separated by a blank line; each w:r becomes a Run carrying the direct
// formatting found in its w:rPr. Style inheritance is not resolved.
func extractDocx(data []byte) (string, []docmodel.Run, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("open zip: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", nil, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	var (
		paragraphs []string
		runs       []docmodel.Run
		para       strings.Builder
		paraRuns   []docmodel.Run
		align      string
		run        *docmodel.Run
		runText    strings.Builder
		inText     bool
		inRunProps bool
	)

	decoder := xml.NewDecoder(rc)
	depth := 0
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxXMLDepth {
				return "", nil, fmt.Errorf("xml nesting depth exceeds %d", maxXMLDepth)
			}
			switch t.Name.Local {
			case "p":
				para.Reset()
				paraRuns = paraRuns[:0]
				align = ""
			case "jc":
				if run == nil {
					align = docxAlignment(attr(t, "val"))
				}
			case "r":
				run = &docmodel.Run{}
				runText.Reset()
			case "rPr":
				inRunProps = run != nil
			case "b":
				if inRunProps {
					run.Bold = docmodel.Bool(docxToggle(t))
				}
			case "i":
				if inRunProps {
					run.Italic = docmodel.Bool(docxToggle(t))
				}
			case "sz":
				if inRunProps {
					if hp, err := strconv.ParseFloat(attr(t, "val"), 64); err == nil {
						run.FontSize = docmodel.Float(hp / 2)
					}
				}
			case "rFonts":
				if inRunProps {
					run.FontName = attr(t, "ascii")
				}
			case "t":
				inText = true
			case "tab":
				if run != nil {
					runText.WriteByte('\t')
				}
			case "br", "cr":
				if run != nil {
					runText.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText && run != nil {
				runText.Write(t)
			}

		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "t":
				inText = false
			case "rPr":
				inRunProps = false
			case "r":
				if run != nil && runText.Len() > 0 {
					run.Text = runText.String()
					para.WriteString(run.Text)
					paraRuns = append(paraRuns, *run)
				}
				run = nil
			case "p":
				text := strings.TrimSpace(para.String())
				if text == "" {
					continue
				}
				paragraphs = append(paragraphs, text)
				for _, r := range paraRuns {
					r.Alignment = align
					runs = append(runs, r)
				}
			}
		}
	}

	return strings.Join(paragraphs, "\n\n"), runs, nil
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// docxToggle reads an on/off property: <w:b/> is on, w:val="0"/"false" off.
func docxToggle(t xml.StartElement) bool {
	switch strings.ToLower(attr(t, "val")) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

func docxAlignment(v string) string {
	switch v {
	case "both", "distribute":
		return "justify"
	case "start", "left":
		return "left"
	case "end", "right":
		return "right"
	}
	return v
}
