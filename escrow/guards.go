package escrow

import "time"

// Guards run against the locked record, in the order listed; the first
// failure is the one reported.

func checkCreate(code string, stake int64, deadline, now time.Time, referee, creator Account) error {
	switch {
	case len(code) == 0:
		return ErrInvalidGameCode
	case len(code) > MaxCodeLen:
		return ErrGameCodeTooLong
	case stake <= 0:
		return ErrInvalidStake
	case !deadline.After(now):
		return ErrInvalidDeadline
	case creator == NoAccount:
		return ErrUnauthorized
	case referee == NoAccount || referee == creator:
		return ErrInvalidReferee
	}
	return nil
}

func checkFundHost(m *Match, caller Account) error {
	switch {
	case m.State.Terminal():
		return ErrInvalidState
	case m.HostFunded():
		return ErrAlreadyFunded
	case m.State != StateInit:
		return ErrInvalidState
	case caller == NoAccount || caller != m.Host:
		return ErrUnauthorized
	}
	return nil
}

func checkJoin(m *Match, caller Account) error {
	switch {
	case m.State.Terminal():
		return ErrInvalidState
	case caller == m.Host || caller == m.Referee:
		return ErrInvalidGuest
	case caller == NoAccount:
		return ErrUnauthorized
	case !m.HostFunded():
		return ErrHostNotFunded
	case m.GuestFunded():
		return ErrAlreadyFunded
	case m.State != StateHostFunded:
		return ErrInvalidState
	}
	return nil
}

func checkSettle(m *Match, referee, winner, winnerAccount Account) error {
	switch {
	case m.State != StateBothFunded:
		return ErrInvalidState
	case referee == NoAccount || referee != m.Referee:
		return ErrUnauthorized
	case !m.IsParticipant(winner):
		return ErrInvalidWinner
	case winnerAccount != winner:
		return ErrInvalidWinner
	}
	return nil
}

func checkRefund(m *Match, caller Account, now time.Time) error {
	switch {
	case m.State != StateHostFunded:
		return ErrInvalidState
	case caller == NoAccount || caller != m.Host:
		return ErrUnauthorized
	case now.Before(m.Deadline):
		return ErrDeadlineNotReached
	}
	return nil
}
