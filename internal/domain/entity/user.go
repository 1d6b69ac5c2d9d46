package entity

// UserState состояние пользователя в диалоге
type UserState string

const (
	StateMainMenu          UserState = "main_menu"           // В главном меню
	StateAwaitingBaseline  UserState = "awaiting_baseline"   // Ожидание эталонного фото
	StateAwaitingCurrent   UserState = "awaiting_current"    // Ожидание текущего фото
	StateAwaitingBaseline2 UserState = "awaiting_baseline_2" // Ожидание эталона второго ракурса
	StateAwaitingCurrent2  UserState = "awaiting_current_2"  // Ожидание текущего фото второго ракурса
	StateProcessing        UserState = "processing"          // Обработка изображений
)

// CheckMode режим проверки: один или два ракурса
type CheckMode string

const (
	ModeSingleAngle CheckMode = "single"
	ModeDualAngle   CheckMode = "dual"
)

// User представляет пользователя бота
type User struct {
	ID     int64     // Telegram User ID
	ChatID int64     // Telegram Chat ID
	State  UserState // Текущее состояние пользователя
	Mode   CheckMode // Режим текущей проверки
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
		Mode:   ModeSingleAngle,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// BeginCheck начинает новую проверку в заданном режиме
func (u *User) BeginCheck(mode CheckMode) {
	if mode != ModeDualAngle {
		mode = ModeSingleAngle
	}
	u.Mode = mode
	u.State = StateAwaitingBaseline
}

// AwaitingPhoto true, если бот ждёт очередное фото
func (u *User) AwaitingPhoto() bool {
	switch u.State {
	case StateAwaitingBaseline, StateAwaitingCurrent, StateAwaitingBaseline2, StateAwaitingCurrent2:
		return true
	}
	return false
}

// ExpectedPhotos сколько фото нужно для текущего режима
func (u *User) ExpectedPhotos() int {
	if u.Mode == ModeDualAngle {
		return 4
	}
	return 2
}

// AdvancePhoto переводит пользователя к следующему фото.
// Возвращает true, когда все фото собраны и можно запускать анализ.
func (u *User) AdvancePhoto() bool {
	switch u.State {
	case StateAwaitingBaseline:
		u.State = StateAwaitingCurrent
	case StateAwaitingCurrent:
		if u.Mode == ModeDualAngle {
			u.State = StateAwaitingBaseline2
			return false
		}
		u.State = StateProcessing
		return true
	case StateAwaitingBaseline2:
		u.State = StateAwaitingCurrent2
	case StateAwaitingCurrent2:
		u.State = StateProcessing
		return true
	}
	return false
}
