package store

// Screen is the top-level view the renderer should show. Transitions are
// restricted to the table below; everything else is ignored and logged.
type Screen string

const (
	ScreenSetup   Screen = "setup"
	ScreenLoading Screen = "loading"
	ScreenArena   Screen = "arena"
	ScreenBattle  Screen = "battle"
	ScreenVictory Screen = "victory"
)

// legalScreenMoves enumerates every permitted transition except Reset, which
// may jump to setup from anywhere. Victory is terminal.
var legalScreenMoves = map[Screen][]Screen{
	ScreenSetup:   {ScreenLoading},
	ScreenLoading: {ScreenArena},
	ScreenArena:   {ScreenBattle, ScreenVictory},
	ScreenBattle:  {ScreenArena},
	ScreenVictory: {},
}

func screenMoveAllowed(from, to Screen) bool {
	for _, next := range legalScreenMoves[from] {
		if next == to {
			return true
		}
	}
	return false
}
