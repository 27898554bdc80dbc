package exporter

import (
	"fmt"

	"volgrid/internal/config"
	"volgrid/internal/volatility"
)

// MeshExporter handles dense surface mesh exports. Meshes grow with the
// square of the lattice resolution, so rows stream straight to disk.
type MeshExporter struct {
	csvWriter *CSVWriter
}

// NewMeshExporter creates a new mesh exporter
func NewMeshExporter(paths *config.Paths) *MeshExporter {
	return &MeshExporter{
		csvWriter: NewCSVWriter(paths),
	}
}

// ExportMeshCSV writes sampled surface points as a long-format CSV
func (m *MeshExporter) ExportMeshCSV(points []volatility.MeshPoint, outputPath string) error {
	stream, err := m.csvWriter.CreateStreamWriter(outputPath, m.getHeaders())
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	for _, p := range points {
		if err := stream.WriteRecord(m.pointToCSVRow(p)); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write mesh point: %w", err)
		}
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}

	return nil
}

// getHeaders returns the CSV headers for mesh points
func (m *MeshExporter) getHeaders() []string {
	return []string{
		"expiration_date", "days_to_maturity", "tau", "strike", "moneyness", "vol",
	}
}

// pointToCSVRow converts a mesh point to a CSV row
func (m *MeshExporter) pointToCSVRow(p volatility.MeshPoint) []string {
	return []string{
		formatDate(p.ExpirationDate),
		formatInt(p.DaysToMaturity),
		formatFloat(p.Tau),
		formatFloat(p.Strike),
		formatFloat(p.Moneyness),
		formatFloat(p.Vol),
	}
}
