// Package application contém os casos de uso do proxy: orquestração
// cache-aside do fetch, motor de retry/backoff do cliente resiliente,
// validação de filtros e decisões de admissão (rate limit inbound e
// concorrência).
//
// Ele depende apenas do pacote domain e não conhece net/http nem redis.
package application
