// Package exporter writes classified plot points to files or HTTP responses.
//
// Every point becomes one row of the Columns table. CSVWriter streams rows
// and flushes after each one, so it can back a chunked HTTP response.
// XLSXWriter buffers a workbook through excelize's stream writer and emits
// it on Close, optionally with a Summary sheet:
//
//	w, err := exporter.NewWriter(exporter.FormatXLSX, out)
//	if err != nil {
//	    return err
//	}
//	for _, p := range points {
//	    if err := w.WritePoint(p); err != nil {
//	        return err
//	    }
//	}
//	exporter.WriteSummary(w, summary)
//	return w.Close()
package exporter
