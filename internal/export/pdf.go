/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"gospeech/internal/script"
)

// ScriptSheetPDF writes the sheet as a PDF at outPath. A *SheetError is returned
// alongside a written file when some lines kept their raw text.
func ScriptSheetPDF(s script.Script, outPath string, opt SheetOptions) error {
	rows, errs := sheetRows(s, opt)

	size := "A4"
	if strings.EqualFold(opt.PageSize, "letter") {
		size = "Letter"
	}
	pdf := gofpdf.New("P", "pt", size, "")
	pdf.SetMargins(48, 48, 48)
	pdf.SetAutoPageBreak(true, 48)
	pdf.SetTitle(opt.Title, true)
	pdf.SetCreator("gospeech", false)
	// Core fonts are cp1252; translate so accented names survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-36)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := pageW - left - right
	const speakerW = 110.0

	if opt.Title != "" {
		pdf.SetFont("Helvetica", "B", 18)
		pdf.CellFormat(0, 24, tr(opt.Title), "", 1, "L", false, 0, "")
		pdf.Ln(6)
	}
	scene := ""
	first := true
	for _, r := range rows {
		if first || r.Scene != scene {
			scene = r.Scene
			first = false
			pdf.Ln(8)
			pdf.SetFont("Helvetica", "B", 13)
			pdf.CellFormat(0, 18, tr(scene), "B", 1, "L", false, 0, "")
			pdf.Ln(4)
		}
		if r.Note {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.SetTextColor(110, 110, 110)
			pdf.MultiCell(width, 12, tr(r.Text), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
			continue
		}
		label := r.Speaker
		if opt.LineIDs && r.LineID >= 0 {
			label = fmt.Sprintf("%s #%d", r.Speaker, r.LineID)
		}
		text := r.Text
		if len(r.Flags) > 0 {
			text += " (" + strings.Join(r.Flags, ", ") + ")"
		}
		y := pdf.GetY()
		pdf.SetFont("Helvetica", "B", 10)
		pdf.MultiCell(speakerW, 14, tr(label), "", "L", false)
		yAfterLabel := pdf.GetY()
		pdf.SetXY(left+speakerW, y)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(width-speakerW, 14, tr(text), "", "L", false)
		if yAfterLabel > pdf.GetY() {
			pdf.SetY(yAfterLabel)
		}
		pdf.Ln(3)
	}
	if len(rows) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 14, "(no lines)", "", 1, "L", false, 0, "")
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	if len(errs) > 0 {
		return &SheetError{Errs: errs}
	}
	return nil
}

// IsPartial reports whether err only says that some lines kept their raw text.
func IsPartial(err error) bool {
	var se *SheetError
	return errors.As(err, &se)
}
