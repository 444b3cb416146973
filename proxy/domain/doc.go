// Package domain define contratos e tipos de domínio do proxy: recursos da
// API upstream, falhas tipadas, fingerprint de cache e contratos de rate
// limit / cache / cliente upstream.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura.
package domain
