package carteira

import "time"

const saoPauloTimeZoneName = "America/Sao_Paulo"

var saoPauloLocation = loadSaoPauloLocation()

func loadSaoPauloLocation() *time.Location {
	location, err := time.LoadLocation(saoPauloTimeZoneName)
	if err != nil {
		return time.FixedZone(saoPauloTimeZoneName, -3*60*60)
	}
	return location
}

// NowInSaoPaulo returns current time in America/Sao_Paulo.
func NowInSaoPaulo() time.Time {
	return time.Now().In(saoPauloLocation)
}

// todayISO returns the core clock's current date as YYYY-MM-DD.
func (c *Core) todayISO() string {
	return c.now().Format("2006-01-02")
}
