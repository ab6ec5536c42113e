package postgres

import (
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/pitchdata/footystats/internal/domain/league"
)

type leagueTableModel struct {
	ID           int64     `db:"id"`
	LeagueKey    string    `db:"league_key"`
	LeagueID     string    `db:"league_id"`
	LeagueName   string    `db:"league_name"`
	CountryID    string    `db:"country_id"`
	CountryName  string    `db:"country_name"`
	LeagueSeason string    `db:"league_season"`
	LeagueLogo   string    `db:"league_logo"`
	CountryLogo  string    `db:"country_logo"`
	LeagueTeams  string    `db:"league_teams"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (m leagueTableModel) toDomain() (league.League, error) {
	var teams []league.Team
	if m.LeagueTeams != "" {
		if err := sonic.Unmarshal([]byte(m.LeagueTeams), &teams); err != nil {
			return league.League{}, fmt.Errorf("decode league_teams for league %s: %w", m.LeagueKey, err)
		}
	}

	return league.League{
		LeagueKey:    m.LeagueKey,
		LeagueID:     m.LeagueID,
		LeagueName:   m.LeagueName,
		CountryID:    m.CountryID,
		CountryName:  m.CountryName,
		LeagueSeason: m.LeagueSeason,
		LeagueLogo:   m.LeagueLogo,
		CountryLogo:  m.CountryLogo,
		Teams:        teams,
	}, nil
}
