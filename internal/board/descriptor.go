package board

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
)

// TokenKind tags the lines of a board descriptor.
type TokenKind int

const (
	// TokenBoardName is "<board>.name=<display name>".
	TokenBoardName TokenKind = iota + 1
	// TokenBoardParam is any other "<board>.<key>=<value>" line. Its value
	// is not retained, but it still declares the board.
	TokenBoardParam
	// TokenMenuLabel is "menu.<menu>=<title>".
	TokenMenuLabel
	// TokenMenuOption is "<board>.menu.<menu>.<option>[.<extra>]=<value>".
	TokenMenuOption
)

func (k TokenKind) String() string {
	switch k {
	case TokenBoardName:
		return "board-name"
	case TokenBoardParam:
		return "board-param"
	case TokenMenuLabel:
		return "menu-label"
	case TokenMenuOption:
		return "menu-option"
	default:
		return "unknown"
	}
}

// Token is one recognised descriptor line.
type Token struct {
	Kind TokenKind
	// Line is 1-based.
	Line int

	Board  string
	Key    string // TokenBoardParam only
	Menu   string
	Option string
	// Extra is the suffix after the option id, e.g. "build.mcu".
	Extra string
	Value string
}

// Tokens yields the recognised lines of a descriptor. Comments, blank lines
// and anything else unrecognised are skipped; tokenizing never fails.
func Tokens(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		lineNo := 0
		for raw := range strings.Lines(text) {
			lineNo++
			tok, ok := tokenizeLine(raw)
			if !ok {
				continue
			}
			tok.Line = lineNo
			if !yield(tok) {
				return
			}
		}
	}
}

func tokenizeLine(raw string) (Token, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return Token{}, false
	}
	key, value, ok := strings.Cut(line, "=")
	if !ok || value == "" || key == "" || strings.ContainsAny(key, " \t") {
		return Token{}, false
	}
	head, rest, ok := strings.Cut(key, ".")
	if !ok || head == "" || rest == "" {
		return Token{}, false
	}

	if head == "menu" {
		// Dotted remainders never match a menu id and are inert.
		return Token{Kind: TokenMenuLabel, Menu: rest, Value: value}, true
	}

	if rest == "name" {
		return Token{Kind: TokenBoardName, Board: head, Value: value}, true
	}
	if menuRest, isMenu := strings.CutPrefix(rest, "menu."); isMenu {
		menu, optRest, ok := strings.Cut(menuRest, ".")
		if ok && menu != "" && optRest != "" {
			option, extra, _ := strings.Cut(optRest, ".")
			if option != "" {
				return Token{Kind: TokenMenuOption, Board: head, Menu: menu, Option: option, Extra: extra, Value: value}, true
			}
		}
	}
	return Token{Kind: TokenBoardParam, Board: head, Key: rest, Value: value}, true
}

// ParseBoards parses a boards.txt descriptor. Boards are returned in the
// order they are first declared; each is owned by platform.
func ParseBoards(text string, platform *Platform) []*Board {
	b := newDescriptorBuilder(platform)
	for tok := range Tokens(text) {
		b.add(tok)
	}
	return b.finish()
}

// ParseBoardsFile reads and parses a boards.txt file.
func ParseBoardsFile(path string, platform *Platform) ([]*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board descriptor: %w", err)
	}
	return ParseBoards(string(data), platform), nil
}

type descriptorBuilder struct {
	platform *Platform
	byID     map[string]*Board
	order    []*Board
	titles   map[string]string
}

func newDescriptorBuilder(platform *Platform) *descriptorBuilder {
	return &descriptorBuilder{
		platform: platform,
		byID:     make(map[string]*Board),
		titles:   make(map[string]string),
	}
}

func (d *descriptorBuilder) board(id string) *Board {
	if b, ok := d.byID[id]; ok {
		return b
	}
	b := NewBoard(id, d.platform)
	d.byID[id] = b
	d.order = append(d.order, b)
	return b
}

func (d *descriptorBuilder) add(tok Token) {
	switch tok.Kind {
	case TokenMenuLabel:
		d.titles[tok.Menu] = strings.TrimSpace(tok.Value)
	case TokenBoardName:
		d.board(tok.Board).DisplayName = strings.TrimSpace(tok.Value)
	case TokenBoardParam:
		d.board(tok.Board)
	case TokenMenuOption:
		d.board(tok.Board).addMenuOption(tok)
	}
}

func (d *descriptorBuilder) finish() []*Board {
	for _, b := range d.order {
		for _, item := range b.configItems {
			if title, ok := d.titles[item.ID]; ok {
				item.DisplayName = title
			}
		}
	}
	return d.order
}

// addMenuOption records an option of a menu. The first option seen for a
// menu becomes its default selection. Only the plain
// "menu.<menu>.<option>=<value>" form names the option; extra-suffixed
// lines declare it with a placeholder name if it has not been seen yet.
func (b *Board) addMenuOption(tok Token) {
	item := b.ConfigItem(tok.Menu)
	if item == nil {
		item = &ConfigItem{ID: tok.Menu, DisplayName: tok.Menu}
		b.configItems = append(b.configItems, item)
	}
	display := tok.Option
	if tok.Extra == "" {
		display = strings.TrimSpace(tok.Value)
	}
	found := false
	for i := range item.Options {
		if item.Options[i].ID == tok.Option {
			if tok.Extra == "" {
				item.Options[i].DisplayName = display
			}
			found = true
			break
		}
	}
	if !found {
		item.Options = append(item.Options, Option{ID: tok.Option, DisplayName: display})
	}
	if item.Selected == "" {
		item.Selected = tok.Option
	}
}

// ParseProgrammers parses a programmers.txt descriptor. Programmers are
// returned in declaration order; only the name key is retained.
func ParseProgrammers(text string, platform *Platform) []*Programmer {
	byID := make(map[string]*Programmer)
	var order []*Programmer
	for tok := range Tokens(text) {
		var id string
		switch tok.Kind {
		case TokenBoardName, TokenBoardParam, TokenMenuOption:
			id = tok.Board
		default:
			continue
		}
		p, ok := byID[id]
		if !ok {
			p = &Programmer{ID: id, Platform: platform}
			byID[id] = p
			order = append(order, p)
		}
		if tok.Kind == TokenBoardName {
			p.DisplayName = strings.TrimSpace(tok.Value)
		}
	}
	return order
}

// ParseProgrammersFile reads and parses a programmers.txt file.
func ParseProgrammersFile(path string, platform *Platform) ([]*Programmer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read programmer descriptor: %w", err)
	}
	return ParseProgrammers(string(data), platform), nil
}

// Properties holds the platform.txt keys this package cares about.
type Properties struct {
	Name    string
	Version string
}

// ReadProperties scans a platform.txt descriptor for its name and version.
func ReadProperties(r io.Reader) (Properties, error) {
	var props Properties
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "name":
			props.Name = strings.TrimSpace(value)
		case "version":
			props.Version = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return props, fmt.Errorf("error reading platform descriptor: %w", err)
	}
	return props, nil
}
