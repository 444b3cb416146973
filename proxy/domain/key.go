package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Prefixo de todas as chaves de cache do serviço dentro do redis.
const cacheKeyPrefix = "rm:cache"

// QueryKey gera o fingerprint determinístico de uma consulta paginada.
//
// Duas consultas logicamente idênticas (mesmos filtros em ordem diferente)
// produzem a mesma chave: os filtros são ordenados antes do hash.
// Formato: rm:cache:<recurso>:q:<hash>
func QueryKey(q Query) string {
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		// chave e valor escapados: um valor contendo '&' ou '=' não pode
		// produzir o mesmo material de hash de um conjunto de filtros distinto
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(q.Filters[k]))
		b.WriteByte('&')
	}
	b.WriteString("page=")
	b.WriteString(strconv.Itoa(q.Page))

	sum := sha256.Sum256([]byte(b.String()))
	return cacheKeyPrefix + ":" + string(q.Resource) + ":q:" + hex.EncodeToString(sum[:8])
}

// IDKey gera a chave de cache de um recurso individual (busca por ID).
func IDKey(resource ResourceType, id int) string {
	return cacheKeyPrefix + ":" + string(resource) + ":id:" + strconv.Itoa(id)
}

// ResourcePrefix retorna o prefixo que cobre todas as chaves de um recurso.
// Com recurso vazio, cobre o cache inteiro do serviço.
func ResourcePrefix(resource ResourceType) string {
	if resource == "" {
		return cacheKeyPrefix + ":"
	}
	return cacheKeyPrefix + ":" + string(resource) + ":"
}
