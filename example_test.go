package umlpreview_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/aretw0/umlpreview/pkg/ports"
	"github.com/aretw0/umlpreview/pkg/render"
	"github.com/aretw0/umlpreview/pkg/source"
)

func Example() {
	// A stand-in rendering server answering every page.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<svg><!-- %s %s --></svg>", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	settings := domain.DefaultSettings()
	settings.Render = domain.StrategyServer
	settings.Server = srv.URL

	session := render.NewSession(ports.StaticSettings(settings))
	defer session.Close(context.Background())

	diagrams := source.Parse("doc.puml", "@startuml hello\nA -> B\nnewpage\nB -> A\n@enduml\n")

	pages, err := session.Render(context.Background(), diagrams[0], "svg", "").Wait(context.Background())
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, p := range pages {
		fmt.Println(string(p))
	}
	// Output:
	// <svg><!-- POST /svg/0 --></svg>
	// <svg><!-- POST /svg/1 --></svg>
}
