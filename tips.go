package main

import (
	"strings"

	"github.com/lithammer/dedent"
)

type tip struct {
	title string
	body  string
}

var tips = []tip{
	{
		title: "Truco Pro #1",
		body: `
			Sube los anuncios los domingos a partir de las 19:00. Es cuando hay
			más gente buscando y tu anuncio aparecerá arriba del todo.
		`,
	},
	{
		title: "⚡ Regla de Oro",
		body: `
			Nunca aceptes la primera oferta. El comprador siempre está dispuesto
			a subir un 10% si le dices que "ya tienes a otra persona interesada
			de camino".
		`,
	},
}

func formatTip(t tip) string {
	return sectionTitleStyle.Render(t.title) + "\n" + strings.TrimSpace(dedent.Dedent(t.body))
}

func tipsText() string {
	parts := make([]string, 0, len(tips)+1)
	parts = append(parts, titleStyle.Render(MenuTips))
	for _, t := range tips {
		parts = append(parts, formatTip(t))
	}
	return "\n" + strings.Join(parts, "\n\n") + "\n"
}
