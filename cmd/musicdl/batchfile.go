package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/cesargomez89/musicdl/internal/domain"
	"github.com/cesargomez89/musicdl/internal/http/dto"
)

// loadBatchFile reads a YAML batch. The file is either a list of items or a
// mapping with an "items" list.
func loadBatchFile(path string) ([]domain.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	return parseBatch(data)
}

func parseBatch(data []byte) ([]domain.Item, error) {
	var req dto.SubmitRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		var items []dto.ItemRequest
		if listErr := yaml.Unmarshal(data, &items); listErr != nil {
			return nil, fmt.Errorf("parsing batch file: %w", err)
		}
		req.Items = items
	}
	if errs := req.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid batch file: %s", dto.ToResponse(errs))
	}
	return req.ToDomain(), nil
}
