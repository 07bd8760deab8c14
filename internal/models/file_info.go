package models

import "time"

// FileInfo represents provider metadata about a stored file.
type FileInfo struct {
	PublicID  string    `json:"public_id"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"created_at"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
}

// URLBundle holds the URL variants derived for a stored file.
// View and Direct are identical for PDFs; Download forces an attachment.
type URLBundle struct {
	Download string `json:"download"`
	View     string `json:"view"`
	Direct   string `json:"direct"`
}

// UploadedFile is the descriptor returned to callers after a successful upload.
type UploadedFile struct {
	URL          string     `json:"url"`
	PublicID     string     `json:"public_id"`
	Nombre       string     `json:"nombre"`
	Tipo         string     `json:"tipo"`
	Size         int64      `json:"size"`
	IsPDF        bool       `json:"isPDF"`
	Field        string     `json:"campo"`
	ResourceType string     `json:"resource_type"`
	UploadMethod string     `json:"upload_method,omitempty"`
	PDFURLs      *URLBundle `json:"pdfUrls,omitempty"`
	UploadedAt   time.Time  `json:"uploadedAt"`
}
