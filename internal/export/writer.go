// Package export serializes a batch's scan results into a fixed row schema
// per document type. Actual spreadsheet/PDF rendering is out of scope;
// only the row shape and a CSV writer (the schema's most literal
// serialization) are implemented.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"recon-engine/internal/docparser"
	"recon-engine/internal/domain"
)

// Writer serializes rows of one document type to w.
type Writer interface {
	WriteCSV(w io.Writer, rows []interface{}) error
}

var columnsByType = map[string][]string{
	docparser.TypeFakturPajak:   {"nomor_faktur", "tanggal", "nama_penjual", "npwp_penjual", "nama_pembeli", "npwp_pembeli", "dpp", "ppn", "total"},
	docparser.TypeInvoice:       {"nomor_invoice", "tanggal", "vendor", "total", "status"},
	docparser.TypePph21:         {"nomor_bukti_potong", "masa_pajak", "nama_penerima", "npwp_penerima", "penghasilan_bruto", "pph"},
	docparser.TypePph23:         {"nomor_bukti_potong", "masa_pajak", "nama_wajib_pajak", "npwp_wajib_pajak", "jenis_penghasilan", "dpp", "pph"},
	docparser.TypeRekeningKoran: {"tanggal", "nilai_uang_masuk", "nilai_uang_keluar", "saldo", "sumber_uang_masuk", "tujuan_uang_keluar", "keterangan"},
}

// WriteBatchCSV writes one CSV section per document type present in
// results, each headed by its schema's column names.
func WriteBatchCSV(w io.Writer, results []domain.ScanResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	grouped := map[string][]domain.ScanResult{}
	order := []string{}
	for _, r := range results {
		if _, seen := grouped[r.DocumentType]; !seen {
			order = append(order, r.DocumentType)
		}
		grouped[r.DocumentType] = append(grouped[r.DocumentType], r)
	}

	for _, docType := range order {
		cols, ok := columnsByType[docType]
		if !ok {
			cols = []string{"document_type", "original_filename", "confidence"}
		}
		if err := cw.Write(append([]string{"# " + docType}, cols...)); err != nil {
			return err
		}
		for _, res := range grouped[docType] {
			for _, row := range rowsForResult(docType, res) {
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func rowsForResult(docType string, res domain.ScanResult) [][]string {
	switch docType {
	case docparser.TypeFakturPajak:
		r := fakturRowFromScanResult(res)
		return [][]string{{r.NomorFaktur, r.Tanggal, r.NamaPenjual, r.NpwpPenjual, r.NamaPembeli, r.NpwpPembeli, r.Dpp, r.Ppn, r.Total}}
	case docparser.TypeInvoice:
		r := invoiceRowFromScanResult(res)
		return [][]string{{r.NomorInvoice, r.Tanggal, r.Vendor, r.Total, r.Status}}
	case docparser.TypePph21:
		r := pph21RowFromScanResult(res)
		return [][]string{{r.NomorBuktiPotong, r.MasaPajak, r.NamaPenerima, r.NpwpPenerima, r.PenghasilanBruto, r.Pph}}
	case docparser.TypePph23:
		r := pph23RowFromScanResult(res)
		return [][]string{{r.NomorBuktiPotong, r.MasaPajak, r.NamaWajibPajak, r.NpwpWajibPajak, r.JenisPenghasilan, r.Dpp, r.Pph}}
	case docparser.TypeRekeningKoran:
		return rekeningRowsFromScanResult(res)
	default:
		return [][]string{{docType, res.OriginalFilename, fmt.Sprintf("%.2f", res.Confidence)}}
	}
}

func fakturRowFromScanResult(res domain.ScanResult) domain.FakturPajakRow {
	d := res.ExtractedData
	return domain.FakturPajakRow{
		NomorFaktur: str(d, "invoice_number"),
		Tanggal:     str(d, "invoice_date"),
		NamaPenjual: str(d, "vendor_name"),
		NpwpPenjual: str(d, "vendor_npwp"),
		Dpp:         str(d, "dpp"),
		Ppn:         str(d, "ppn"),
		Total:       str(d, "total_amount"),
	}
}

func invoiceRowFromScanResult(res domain.ScanResult) domain.InvoiceRow {
	d := res.ExtractedData
	return domain.InvoiceRow{
		NomorInvoice: str(d, "invoice_number"),
		Tanggal:      str(d, "invoice_date"),
		Vendor:       str(d, "vendor_name"),
		Total:        str(d, "total_amount"),
		Status:       res.DocumentType,
	}
}

func pph21RowFromScanResult(res domain.ScanResult) domain.Pph21Row {
	d := res.ExtractedData
	return domain.Pph21Row{
		NomorBuktiPotong: str(d, "invoice_number"),
		MasaPajak:        str(d, "invoice_date"),
		NamaPenerima:     str(d, "vendor_name"),
		NpwpPenerima:     str(d, "vendor_npwp"),
		PenghasilanBruto: str(d, "dpp"),
		Pph:              str(d, "ppn"),
	}
}

func pph23RowFromScanResult(res domain.ScanResult) domain.Pph23Row {
	d := res.ExtractedData
	return domain.Pph23Row{
		NomorBuktiPotong: str(d, "invoice_number"),
		MasaPajak:        str(d, "invoice_date"),
		NamaWajibPajak:   str(d, "vendor_name"),
		NpwpWajibPajak:   str(d, "vendor_npwp"),
		JenisPenghasilan: "pph23",
		Dpp:              str(d, "dpp"),
		Pph:              str(d, "ppn"),
	}
}

// rekeningRowsFromScanResult flattens the bank normalization envelope's
// "transactions" array into one CSV row per normalized transaction.
func rekeningRowsFromScanResult(res domain.ScanResult) [][]string {
	txs, _ := res.ExtractedData["transactions"].([]interface{})
	if len(txs) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(txs))
	for _, t := range txs {
		tx, ok := t.(map[string]interface{})
		if !ok {
			continue
		}
		debit := str(tx, "debit")
		credit := str(tx, "credit")
		description := str(tx, "description")
		row := domain.RekeningKoranRow{
			Tanggal:         str(tx, "transaction_date"),
			NilaiUangMasuk:  credit,
			NilaiUangKeluar: debit,
			Saldo:           str(tx, "balance"),
			Keterangan:      description,
		}
		if credit != "" && credit != "0" {
			row.SumberMasuk = description
		}
		if debit != "" && debit != "0" {
			row.TujuanKeluar = description
		}
		rows = append(rows, []string{row.Tanggal, row.NilaiUangMasuk, row.NilaiUangKeluar, row.Saldo, row.SumberMasuk, row.TujuanKeluar, row.Keterangan})
	}
	return rows
}

func str(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}
