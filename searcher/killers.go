package searcher

import "gamesearch/game"

const maxKillers = 2

// killerTable remembers, per ply, the last moves that caused a beta cutoff.
type killerTable struct {
	killers [][maxKillers]game.Move
}

func (k *killerTable) ensure(ply int) {
	for len(k.killers) <= ply {
		k.killers = append(k.killers, [maxKillers]game.Move{})
	}
}

func (k *killerTable) store(ply int, move game.Move) {
	k.ensure(ply)
	if k.killers[ply][0] != move {
		k.killers[ply][1] = k.killers[ply][0]
		k.killers[ply][0] = move
	}
}

// rank returns the killer slot of move at ply, or -1.
func (k *killerTable) rank(ply int, move game.Move) int {
	if ply >= len(k.killers) {
		return -1
	}
	for i, killer := range k.killers[ply] {
		if killer != nil && killer == move {
			return i
		}
	}
	return -1
}

func (k *killerTable) clear() {
	for i := range k.killers {
		k.killers[i] = [maxKillers]game.Move{}
	}
}
