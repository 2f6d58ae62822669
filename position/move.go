package position

import dragon "github.com/dylhunn/dragontoothmg"

// Move is a dragontoothmg move. The zero value is NoMove.
type Move dragon.Move

const NoMove Move = 0

func (m Move) From() uint8 {
	dm := dragon.Move(m)
	return dm.From()
}

func (m Move) To() uint8 {
	dm := dragon.Move(m)
	return dm.To()
}

// String returns the move in UCI notation, e.g. "e7e8q".
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	dm := dragon.Move(m)
	return dm.String()
}
