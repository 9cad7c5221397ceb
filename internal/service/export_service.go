package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"readrise/internal/repository"
)

// ExportService writes the admin roster export
type ExportService struct {
	familyRepo *repository.FamilyRepository
	logRepo    *repository.LogRepository
}

// NewExportService creates a new export service
func NewExportService(familyRepo *repository.FamilyRepository, logRepo *repository.LogRepository) *ExportService {
	return &ExportService{familyRepo: familyRepo, logRepo: logRepo}
}

var rosterHeader = []string{
	"ParentCode", "ParentName", "Name", "Age", "Gender", "Ethnicity",
	"School", "Grade", "ReadingLevel", "MinutesTotal",
}

// WriteRosterCSV streams one CSV row per kid across the organization's
// families. Quoting and escaping follow RFC 4180 via encoding/csv.
func (s *ExportService) WriteRosterCSV(w io.Writer, orgID string) error {
	families, err := s.familyRepo.ListFamilies(orgID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(rosterHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, family := range families {
		for _, kid := range family.Kids {
			minutes, err := s.logRepo.MinutesTotal(kid.ID)
			if err != nil {
				return fmt.Errorf("failed to total minutes for kid %s: %w", kid.ID, err)
			}
			row := []string{
				family.Code,
				family.ParentName,
				kid.Name,
				strconv.Itoa(kid.Age),
				kid.Gender,
				kid.Ethnicity,
				kid.School,
				kid.Grade,
				string(kid.ReadingLevel),
				strconv.Itoa(minutes),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
