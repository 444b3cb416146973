// Package infra contém as implementações concretas dos contratos de domain:
// token buckets por escopo (golang.org/x/time/rate), pacer do upstream,
// cache e estatísticas em redis (com gêmeos em memória para testes/dev) e o
// cliente HTTP do upstream com pool de conexões.
package infra
