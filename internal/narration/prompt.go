package narration

import (
	"fmt"
	"strings"

	"github.com/thereayou/gm-table/internal/dice"
	"github.com/thereayou/gm-table/internal/history"
	"github.com/thereayou/gm-table/internal/models"
	"github.com/thereayou/gm-table/internal/narrator"
)

const NarratorName = "Narrator"

// notableSkill is the lowest skill value worth mentioning to the narrator.
const notableSkill = 50

// Persona is the default system prompt.
const Persona = `You are the Keeper of a Call of Cthulhu tabletop session run in a chat room.
Narrate in the second person, present tense, and keep each reply under 200 words.
Build dread slowly: describe sounds, smells and small wrong details before anything is revealed.
Stay in character. Never mention being an AI, never decide what the investigators do or feel.
Use the investigators' occupations, skills and backgrounds to make scenes personal.
When an action is uncertain, ask the player for a skill roll and name the skill.
When a roll result is given, narrate its outcome against the listed skill value.
End every reply with a prompt for the players to act.`

// Seat is one player at the table together with their chosen sheet.
type Seat struct {
	PlayerName string
	Character  *models.Character
}

// BuildPrompt assembles persona, history and the new context block in that
// order.
func BuildPrompt(persona string, turns []history.Turn, block string) []narrator.Message {
	out := make([]narrator.Message, 0, len(turns)+2)
	out = append(out, narrator.Message{Role: narrator.RoleSystem, Content: persona})
	for _, t := range turns {
		out = append(out, narrator.Message{Role: roleOf(t.Role), Content: t.Content})
	}
	return append(out, narrator.Message{Role: narrator.RoleUser, Content: block})
}

func roleOf(r history.Role) narrator.Role {
	switch r {
	case history.RoleNarrator:
		return narrator.RoleAssistant
	case history.RoleSystem:
		return narrator.RoleSystem
	default:
		return narrator.RoleUser
	}
}

// OpeningContext asks for the opening scene of script.
func OpeningContext(script string, seats []Seat) string {
	var b strings.Builder
	b.WriteString("As the Keeper, open the game using the following material.\n\nScenario:\n")
	b.WriteString(strings.TrimSpace(script))
	b.WriteString("\n\nInvestigators:\n")
	for i, s := range seats {
		if i > 0 {
			b.WriteString("\n")
		}
		writeFullSheet(&b, s)
	}
	b.WriteString("\nDescribe the opening scene and bring every investigator into it, drawing on their characteristics, skills and backgrounds.")
	return b.String()
}

// ActionContext wraps free text said or done by a player.
func ActionContext(s Seat, action string) string {
	var b strings.Builder
	writeBriefSheet(&b, s)
	fmt.Fprintf(&b, "\nPlayer says: %s", action)
	return b.String()
}

// RollContext reports a roll made by a player, with the optional reason the
// player gave for it.
func RollContext(s Seat, r dice.Result, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Roll: %s -> %s = %d\n", r.Spec, joinInts(r.Rolls), r.Total)
	writeBriefSheet(&b, s)
	if reason = strings.TrimSpace(reason); reason != "" {
		fmt.Fprintf(&b, "\nRolled for: %s", reason)
	}
	return b.String()
}

// RollText is the chat line announcing a roll.
func RollText(playerName string, r dice.Result) string {
	return fmt.Sprintf("🎲 %s rolled %s: %s = %d", playerName, r.Spec, joinInts(r.Rolls), r.Total)
}

func writeBriefSheet(b *strings.Builder, s Seat) {
	c := s.Character
	if c == nil {
		fmt.Fprintf(b, "Player: %s (no character selected)\n", s.PlayerName)
		return
	}
	fmt.Fprintf(b, "Player: %s\nCharacter: %s, %s\n", s.PlayerName, c.Name, orNone(c.Occupation))
	fmt.Fprintf(b, "Status: HP %d/%d, MP %d/%d, SAN %d/%d\n",
		c.HitPoints, c.MaxHitPoints, c.MagicPoints, c.MaxMagicPoints, c.Sanity, c.MaxSanity)
	fmt.Fprintf(b, "Key skills: %s\n", skillList(c))
}

func writeFullSheet(b *strings.Builder, s Seat) {
	c := s.Character
	if c == nil {
		fmt.Fprintf(b, "%s has no character\n", s.PlayerName)
		return
	}
	fmt.Fprintf(b, "%s plays %s, %s\n", s.PlayerName, c.Name, orNone(c.Occupation))
	fmt.Fprintf(b, "Characteristics: Strength %d, Constitution %d, Size %d, Dexterity %d, Appearance %d, Intelligence %d, Power %d, Education %d\n",
		c.Strength, c.Constitution, c.Size, c.Dexterity, c.Appearance, c.Intelligence, c.Power, c.Education)
	fmt.Fprintf(b, "Status: HP %d/%d, MP %d/%d, SAN %d/%d, Luck %d\n",
		c.HitPoints, c.MaxHitPoints, c.MagicPoints, c.MaxMagicPoints, c.Sanity, c.MaxSanity, c.Luck)
	fmt.Fprintf(b, "Skills: %s\n", skillList(c))
	fmt.Fprintf(b, "Equipment: %s\n", orNone(strings.Join(c.Equipment, ", ")))
	fmt.Fprintf(b, "Background: %s\n", orNone(c.Background))
}

func skillList(c *models.Character) string {
	skills := c.NotableSkills(notableSkill)
	parts := make([]string, len(skills))
	for i, s := range skills {
		parts[i] = fmt.Sprintf("%s (%d)", s.Name, s.Value)
	}
	return orNone(strings.Join(parts, ", "))
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
