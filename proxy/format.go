// utilitário pequeno para formatação rápida/consistente de valores numéricos
// em headers. Evita puxar fmt (que é mais “pesado” e genérico) só para isso
// e padroniza a saída sem notação científica.

package proxy

import "strconv"

func formatInt(v int) string { return strconv.Itoa(v) }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
