package domain

// Export row shapes for each document type. File generation itself (xlsx/pdf
// bytes) is out of scope; these structs fix the schema a Writer serializes.

// FakturPajakRow is one exported row for a tax-invoice batch.
type FakturPajakRow struct {
	NomorFaktur string `csv:"nomor_faktur"`
	Tanggal     string `csv:"tanggal"`
	NamaPenjual string `csv:"nama_penjual"`
	NpwpPenjual string `csv:"npwp_penjual"`
	NamaPembeli string `csv:"nama_pembeli"`
	NpwpPembeli string `csv:"npwp_pembeli"`
	Dpp         string `csv:"dpp"`
	Ppn         string `csv:"ppn"`
	Total       string `csv:"total"`
}

// InvoiceRow is one exported row for a commercial invoice batch.
type InvoiceRow struct {
	NomorInvoice string `csv:"nomor_invoice"`
	Tanggal      string `csv:"tanggal"`
	Vendor       string `csv:"vendor"`
	Total        string `csv:"total"`
	Status       string `csv:"status"`
}

// Pph21Row is one exported row for a PPh 21 withholding certificate batch.
type Pph21Row struct {
	NomorBuktiPotong string `csv:"nomor_bukti_potong"`
	MasaPajak        string `csv:"masa_pajak"`
	NamaPenerima     string `csv:"nama_penerima"`
	NpwpPenerima     string `csv:"npwp_penerima"`
	PenghasilanBruto string `csv:"penghasilan_bruto"`
	Pph              string `csv:"pph"`
}

// Pph23Row is one exported row for a PPh 23 withholding certificate batch.
type Pph23Row struct {
	NomorBuktiPotong string `csv:"nomor_bukti_potong"`
	MasaPajak        string `csv:"masa_pajak"`
	NamaWajibPajak   string `csv:"nama_wajib_pajak"`
	NpwpWajibPajak   string `csv:"npwp_wajib_pajak"`
	JenisPenghasilan string `csv:"jenis_penghasilan"`
	Dpp              string `csv:"dpp"`
	Pph              string `csv:"pph"`
}

// RekeningKoranRow is one exported row for a normalized bank statement batch.
type RekeningKoranRow struct {
	Tanggal         string `csv:"tanggal"`
	NilaiUangMasuk  string `csv:"nilai_uang_masuk"`
	NilaiUangKeluar string `csv:"nilai_uang_keluar"`
	Saldo           string `csv:"saldo"`
	SumberMasuk     string `csv:"sumber_uang_masuk"`
	TujuanKeluar    string `csv:"tujuan_uang_keluar"`
	Keterangan      string `csv:"keterangan"`
}

// ReconciliationPoint classifies a document in the four-way PPN variant
//: A = Faktur Keluaran, B = Faktur Masukan, C = Bukti Potong,
// E = Rekening Koran.
type ReconciliationPoint string

const (
	PointA ReconciliationPoint = "A"
	PointB ReconciliationPoint = "B"
	PointC ReconciliationPoint = "C"
	PointE ReconciliationPoint = "E"
)
