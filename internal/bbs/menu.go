package bbs

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/yndnr/meshbbs-go/internal/session"
)

// Menus lists the letters offered by each top-level menu, in display order.
type Menus struct {
	Main      []string `json:"main" yaml:"main"`
	BBS       []string `json:"bbs" yaml:"bbs"`
	Utilities []string `json:"utilities" yaml:"utilities"`
}

// DefaultMenus returns every item in the usual order.
func DefaultMenus() Menus {
	return Menus{
		Main:      []string{"Q", "B", "U", "X"},
		BBS:       []string{"M", "B", "C", "J", "X"},
		Utilities: []string{"S", "F", "W", "X"},
	}
}

const (
	bbsMenuTitle       = "📰BBS Menu📰"
	utilitiesMenuTitle = "🛠️Utilities Menu🛠️"
)

var menuLabels = map[string]string{
	"Q": "[Q]uick Commands",
	"U": "[U]tilities",
	"X": "E[X]IT",
	"M": "[M]ail",
	"C": "[C]hannel Dir",
	"J": "[J]S8CALL",
	"S": "[S]tats",
	"F": "[F]ortune",
	"W": "[W]all of Shame",
}

func buildMenu(title string, items []string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for _, item := range items {
		item = strings.ToUpper(strings.TrimSpace(item))
		label, ok := menuLabels[item]
		if item == "B" {
			label, ok = "[B]BS", true
			if title == bbsMenuTitle {
				label = "[B]ulletins"
			}
		}
		if !ok {
			continue
		}
		b.WriteString(label)
		b.WriteString("\n")
	}
	return b.String()
}

func offers(items []string, c string) bool {
	return slices.ContainsFunc(items, func(item string) bool {
		return strings.EqualFold(strings.TrimSpace(item), c)
	})
}

const quickHelp = "✈️QUICK COMMANDS✈️\nSend command below for usage info:\n" +
	"SM,, - Send Mail\nCM - Check Mail\nPB,, - Post Bulletin\nCB,, - Check Bulletins\n" +
	"CHP,, - Post Channel\nCHL - List Channels\n"

const exitReply = "Type 'HELP' for a list of commands."

// mainMenu is the root of every dialogue.
type mainMenu struct{ r *Router }

func (h mainMenu) Enter(ctx context.Context, t *Turn) {
	n, err := h.r.mail.Count(ctx, t.From)
	if err != nil {
		h.r.logger.Warn("cannot count mail", "node", t.From, "error", err)
	}
	t.Reply(buildMenu("💾"+h.r.cfg.Name+"💾 (✉️:"+strconv.Itoa(n)+")", h.r.cfg.Menus.Main))
	t.Set(session.At(session.TagMainMenu, 1))
}

func (h mainMenu) Step(ctx context.Context, t *Turn, _ session.State, input string) {
	c := choice(input)
	if !offers(h.r.cfg.Menus.Main, c) {
		h.Enter(ctx, t)
		return
	}
	switch c {
	case "Q":
		t.Reply(quickHelp)
	case "B":
		h.r.enter(ctx, t, session.TagBBSMenu)
	case "U":
		h.r.enter(ctx, t, session.TagUtilitiesMenu)
	case "X":
		t.Reply(exitReply)
		t.Reset()
	default:
		h.Enter(ctx, t)
	}
}

type bbsMenu struct{ r *Router }

func (h bbsMenu) Enter(_ context.Context, t *Turn) {
	t.Reply(buildMenu(bbsMenuTitle, h.r.cfg.Menus.BBS))
	t.Set(session.At(session.TagBBSMenu, 1))
}

func (h bbsMenu) Step(ctx context.Context, t *Turn, _ session.State, input string) {
	c := choice(input)
	if !offers(h.r.cfg.Menus.BBS, c) {
		h.Enter(ctx, t)
		return
	}
	switch c {
	case "M":
		h.r.enter(ctx, t, session.TagMail)
	case "B":
		h.r.enter(ctx, t, session.TagBulletin)
	case "C":
		h.r.enter(ctx, t, session.TagChannel)
	case "J":
		t.Reply("JS8Call is not available on this BBS.")
	case "X":
		h.r.enter(ctx, t, session.TagMainMenu)
	default:
		h.Enter(ctx, t)
	}
}

type utilitiesMenu struct{ r *Router }

func (h utilitiesMenu) Enter(_ context.Context, t *Turn) {
	t.Reply(buildMenu(utilitiesMenuTitle, h.r.cfg.Menus.Utilities))
	t.Set(session.At(session.TagUtilitiesMenu, 1))
}

func (h utilitiesMenu) Step(ctx context.Context, t *Turn, _ session.State, input string) {
	c := choice(input)
	if !offers(h.r.cfg.Menus.Utilities, c) {
		h.Enter(ctx, t)
		return
	}
	switch c {
	case "S":
		h.r.enter(ctx, t, session.TagStats)
	case "F":
		t.Reply(h.r.fortune())
	case "W":
		t.Reply(wallOfShame(h.r.dir.Nodes()))
	case "X":
		h.r.enter(ctx, t, session.TagMainMenu)
	default:
		h.Enter(ctx, t)
	}
}
