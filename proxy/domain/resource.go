package domain

import "encoding/json"

// Tipos de recurso expostos pela API upstream.
//
// O valor da constante é o próprio segmento de path usado pelo upstream
// (ex: GET /character?page=2), então não há tabela de tradução.
type ResourceType string

const (
	ResourceCharacter ResourceType = "character"
	ResourceLocation  ResourceType = "location"
	ResourceEpisode   ResourceType = "episode"
)

// ResourceTypes retorna os tipos conhecidos em ordem estável.
func ResourceTypes() []ResourceType {
	return []ResourceType{ResourceCharacter, ResourceLocation, ResourceEpisode}
}

// ParseResourceType valida um nome de recurso vindo de fora (rota, query).
func ParseResourceType(s string) (ResourceType, bool) {
	switch ResourceType(s) {
	case ResourceCharacter, ResourceLocation, ResourceEpisode:
		return ResourceType(s), true
	}
	return "", false
}

// Filters são os parâmetros de filtro repassados ao upstream (name=rick etc).
// A normalização/validação fica na camada application.
type Filters map[string]string

// Query identifica uma página lógica: recurso + filtros + número da página.
type Query struct {
	Resource ResourceType
	Filters  Filters
	Page     int
}

// PageInfo é o bloco de paginação retornado pelo upstream.
// Next/Prev são URLs completas; vazio significa que não há página.
type PageInfo struct {
	Count int    `json:"count"`
	Pages int    `json:"pages"`
	Next  string `json:"next"`
	Prev  string `json:"prev"`
}

// Page é o payload de uma página do upstream. Os itens ficam como RawMessage:
// o proxy não interpreta o conteúdo, só repassa e agrega.
type Page struct {
	Info    PageInfo          `json:"info"`
	Results []json.RawMessage `json:"results"`
}

// HasNext informa se o upstream anunciou mais páginas depois desta.
func (p *Page) HasNext() bool {
	return p != nil && p.Info.Next != ""
}
