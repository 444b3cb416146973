// Package proxy fornece os adapters HTTP (net/http) do serviço que fronteia
// a API Rick and Morty: rotas JSON, rate limit por chamador, limite de
// concorrência, headers de segurança e a exportação em massa para disco.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (orquestração cache-aside, retry resiliente,
//     validação, decisão de admissão) sem net/http
//   - infra: implementações concretas (token buckets, redis, cliente HTTP do
//     upstream), detalhes de infraestrutura
//   - proxy (este pacote): handlers + middlewares + tradução de falhas
//     tipadas para status/headers
//
// Fluxo de uma requisição:
//
//  1. Extrai a chave do chamador (IP/header/XFF) e decide a admissão inbound
//  2. Se bloqueado, responde 429 com Retry-After
//  3. Se permitido, o handler chama o orquestrador (cache → pacer → upstream)
//  4. Falhas tipadas viram um status estável cada: 404/400/429/503
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o
// comportamento, como RATE_QUOTA, RATE_WINDOW, UPSTREAM_QUOTA, CACHE_TTL e
// CONCURRENCY_MAX.
package proxy
