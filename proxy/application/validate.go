package application

import (
	"fmt"
	"strings"

	"rickmorty-gateway/proxy/domain"
)

const (
	maxFilterValueLen = 100
	// MaxPage limita o número de página aceito de fora (evita abuso).
	MaxPage = 100
)

// Filtros aceitos por recurso, espelhando o que o upstream suporta.
var allowedFilters = map[domain.ResourceType][]string{
	domain.ResourceCharacter: {"name", "status", "species"},
	domain.ResourceLocation:  {"name", "type", "dimension"},
	domain.ResourceEpisode:   {"name", "episode"},
}

var characterStatuses = map[string]bool{
	"alive":   true,
	"dead":    true,
	"unknown": true,
}

// NormalizeQuery valida e normaliza uma consulta vinda de fora, antes de
// qualquer chamada ao upstream. Valores são aparados, vazios descartados e
// status é normalizado para minúsculas, garantindo que consultas
// logicamente idênticas gerem o mesmo fingerprint de cache.
func NormalizeQuery(resource domain.ResourceType, filters domain.Filters, page int) (domain.Query, error) {
	rt, ok := domain.ParseResourceType(string(resource))
	if !ok {
		return domain.Query{}, domain.InvalidParams(fmt.Sprintf("unknown resource type %q", string(resource)))
	}

	if page < 1 {
		return domain.Query{}, domain.InvalidParams("page must be a positive integer")
	}
	if page > MaxPage {
		return domain.Query{}, domain.InvalidParams(fmt.Sprintf("page must be <= %d", MaxPage))
	}

	normalized := make(domain.Filters, len(filters))
	for k, v := range filters {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !filterAllowed(rt, k) {
			return domain.Query{}, domain.InvalidParams(fmt.Sprintf("filter %q is not supported for %s", k, rt))
		}
		if len(v) > maxFilterValueLen {
			return domain.Query{}, domain.InvalidParams(fmt.Sprintf("%s is too long (max %d characters)", k, maxFilterValueLen))
		}
		if rt == domain.ResourceCharacter && k == "status" {
			v = strings.ToLower(v)
			if !characterStatuses[v] {
				return domain.Query{}, domain.InvalidParams("status must be one of: alive, dead, unknown")
			}
		}
		normalized[k] = v
	}

	return domain.Query{Resource: rt, Filters: normalized, Page: page}, nil
}

func filterAllowed(rt domain.ResourceType, name string) bool {
	for _, f := range allowedFilters[rt] {
		if f == name {
			return true
		}
	}
	return false
}

// AllowedFilters expõe a lista de filtros válidos de um recurso (a camada
// de rotas usa para montar a consulta a partir da query string).
func AllowedFilters(rt domain.ResourceType) []string {
	return allowedFilters[rt]
}
