// Package extract turns uploaded document bytes into plain text plus
// page/sheet boundaries. The pipeline depends only on the Extractor
// contract; concrete extractors for PDF, DOCX and XLSX are registered
// by file type. The PDF extractor carries two engines and retries with
// the secondary when the primary cannot produce text.
package extract
