// Package display renders match state for terminals.
package display

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lox/riichiscore/internal/match"
	"github.com/lox/riichiscore/internal/scoring"
)

// Points formats n with thousands separators, e.g. "25,000".
func Points(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Signed formats a score change with an explicit plus sign.
func Signed(n int) string {
	if n > 0 {
		return "+" + Points(n)
	}
	return Points(n)
}

func styledDiff(n int) string {
	switch {
	case n > 0:
		return GainStyle.Render(Signed(n))
	case n < 0:
		return LossStyle.Render(Signed(n))
	default:
		return InfoStyle.Render("0")
	}
}

// RoundHeader renders e.g. "東3局 1本場 供託2".
func RoundHeader(r match.RoundState) string {
	return fmt.Sprintf("%s 供託%d", r.Kanji(), r.RiichiSticks)
}

// Scoreboard renders the round counters and every seat.
func Scoreboard(s match.Snapshot) string {
	if !s.IsStarted {
		return InfoStyle.Render("No match in progress. Start one with: start <east> <south> <west> <north>")
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(RoundHeader(s.Round)))
	b.WriteString("  ")
	b.WriteString(InfoStyle.Render(string(s.GameMode)))
	if s.Enable30000Rule {
		b.WriteString(InfoStyle.Render(" / 30000"))
	}
	b.WriteString("\n\n")

	for i, p := range s.Players {
		marker := "  "
		if i == s.Round.DealerIndex {
			marker = DealerStyle.Render("親")
		}
		fmt.Fprintf(&b, "%d %s %s %s %s\n",
			i, RoundStyle.Render(p.Wind.Kanji()), marker, NameStyle.Render(p.Name), ScoreStyle.Render(Points(p.Score)))
	}

	if s.IsEnded {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render("Match over: " + s.EndReason.Label()))
		b.WriteString("\n")
	}
	return b.String()
}

func playerName(players []match.Player, seat int) string {
	if seat < 0 || seat >= len(players) {
		return fmt.Sprintf("seat %d", seat)
	}
	return players[seat].Name
}

// Describe summarises a result in one line, e.g. "ロン: Ben ← Chie".
func Describe(r match.Result, players []match.Player) string {
	switch v := r.(type) {
	case match.Ron:
		return fmt.Sprintf("ロン: %s ← %s  %s",
			playerName(players, v.WinnerIndex), playerName(players, v.LoserIndex), scoreInfo(v.ScoreResult))
	case match.Tsumo:
		return fmt.Sprintf("ツモ: %s  %s", playerName(players, v.WinnerIndex), scoreInfo(v.ScoreResult))
	case match.Draw:
		if len(v.TenpaiPlayers) == 0 {
			return "流局: 全員ノーテン"
		}
		names := make([]string, len(v.TenpaiPlayers))
		for i, seat := range v.TenpaiPlayers {
			names[i] = playerName(players, seat)
		}
		return "流局: テンパイ " + strings.Join(names, ", ")
	case match.Riichi:
		return "リーチ: " + playerName(players, v.RiichiPlayerIndex)
	default:
		panic(fmt.Sprintf("display: unknown result %T", r))
	}
}

func scoreInfo(r scoring.ScoreResult) string {
	total := r.Cost.Total
	if total == 0 {
		total = r.Cost.Main
	}
	label := fmt.Sprintf("%d翻 %d符", r.Han, r.Fu)
	if name := scoring.LimitName(r.Han); name != "" {
		label = fmt.Sprintf("%d翻 %s", r.Han, name)
	}
	return fmt.Sprintf("%s / %s点", label, Points(total))
}

// HistoryLine renders one entry with its round and per-seat changes.
func HistoryLine(e match.HistoryEntry, players []match.Player) string {
	var b strings.Builder
	b.WriteString(RoundStyle.Render(e.Round.Kanji()))
	b.WriteString("  ")
	b.WriteString(Describe(e.Result, players))

	diffs := e.Result.Diffs()
	parts := make([]string, 0, len(diffs))
	for i, d := range diffs {
		wind := match.SeatWind(i, e.Round.DealerIndex)
		parts = append(parts, wind.Kanji()+" "+styledDiff(d))
	}
	b.WriteString("\n    ")
	b.WriteString(strings.Join(parts, "  "))
	return b.String()
}

// History renders every entry, oldest first.
func History(s match.Snapshot) string {
	if len(s.History) == 0 {
		return InfoStyle.Render("No history yet.")
	}
	lines := make([]string, len(s.History))
	for i, e := range s.History {
		lines[i] = fmt.Sprintf("%3d. %s", i+1, HistoryLine(e, s.Players))
	}
	return strings.Join(lines, "\n")
}

// Standings renders the final ranking.
func Standings(s match.Snapshot, duration time.Duration) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Standings"))
	b.WriteString("\n")
	for _, st := range s.Standings() {
		fmt.Fprintf(&b, "%d位 %s %s\n", st.Rank, NameStyle.Render(st.Name), ScoreStyle.Render(Points(st.Score)))
	}
	if s.IsEnded {
		b.WriteString(InfoStyle.Render(s.EndReason.Label()))
		b.WriteString("\n")
	}
	if duration > 0 {
		b.WriteString(InfoStyle.Render("Duration " + duration.Round(time.Second).String()))
		b.WriteString("\n")
	}
	return b.String()
}

// Cost renders a table lookup, e.g. "ron 5,200" or "tsumo 1,300/2,600".
func Cost(c scoring.Cost, isTsumo, isDealer bool) string {
	switch {
	case !isTsumo:
		return "ron " + Points(c.Main)
	case isDealer:
		return "tsumo " + Points(c.Main) + " all"
	default:
		return fmt.Sprintf("tsumo %s/%s", Points(c.Additional), Points(c.Main))
	}
}
