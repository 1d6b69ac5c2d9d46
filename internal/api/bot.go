package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	app "boxity-analyzer/internal/application"
	"boxity-analyzer/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я проверяю упаковку на следы вскрытия и повреждения.

📸 Пришлите эталонное фото упаковки и фото того же ракурса сейчас, и я оценю целостность (TIS).

📋 Команды:
/check — проверка по одному ракурсу
/check2 — проверка по двум ракурсам
/help — справка
/cancel — отменить текущую проверку`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Выберите /check или /check2
2️⃣ Отправьте эталонное фото, затем текущее фото того же ракурса
3️⃣ Для /check2 повторите для второго ракурса
4️⃣ Вы получите оценку: TIS, уровень риска и список расхождений

💡 Рекомендации:
• Снимайте эталон и текущее фото с одной точки
• Одинаковое освещение и фон
• Фото должно быть чётким

📋 Команды:
/check — один ракурс
/check2 — два ракурса
/cancel — отменить проверку`

	msgCancelled        = "❌ Проверка отменена. Отправьте /check для новой проверки."
	msgSendCommand      = "📸 Сначала выберите режим: /check или /check2."
	msgUnknownCommand   = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing       = "⏳ Сравниваю снимки..."
	msgBusy             = "⏳ Предыдущая проверка ещё выполняется, подождите."
	msgDownloadError    = "⚠️ Не удалось скачать фото. Попробуйте отправить его ещё раз."
	msgInvalidPhoto     = "⚠️ Это не похоже на изображение. Отправьте фото."
	msgModelUnavailable = "⚠️ Сервис анализа сейчас недоступен. Попробуйте позже: /check"
	msgProcessingError  = "⚠️ Не удалось выполнить анализ. Попробуйте ещё раз: /check"
)

var photoPrompts = map[entity.UserState]string{
	entity.StateAwaitingBaseline:  "📸 Отправьте эталонное фото упаковки.",
	entity.StateAwaitingCurrent:   "📸 Теперь отправьте текущее фото того же ракурса.",
	entity.StateAwaitingBaseline2: "📸 Отправьте эталонное фото второго ракурса.",
	entity.StateAwaitingCurrent2:  "📸 Теперь отправьте текущее фото второго ракурса.",
}

// Bot представляет Telegram-бота
type Bot struct {
	api        *tgbotapi.BotAPI
	inspection *app.InspectionService
	http       *http.Client
	log        *zap.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, inspection *app.InspectionService, log *zap.Logger) (*Bot, error) {
	if log == nil {
		log = zap.NewNop()
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	log.Info("authorized on account", zap.String("username", api.Self.UserName))

	return &Bot{
		api:        api,
		inspection: inspection,
		http:       &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if len(msg.Photo) > 0 {
		// Берём фото с максимальным разрешением
		b.handlePhoto(ctx, msg, msg.Photo[len(msg.Photo)-1].FileID)
		return
	}
	if msg.Document != nil {
		b.handlePhoto(ctx, msg, msg.Document.FileID)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendCommand)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	switch msg.Command() {
	case "start":
		if _, err := b.inspection.Cancel(ctx, userID, chatID); err != nil {
			b.log.Error("reset user", zap.Int64("user_id", userID), zap.Error(err))
		}
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "check", "check2":
		mode := entity.ModeSingleAngle
		if msg.Command() == "check2" {
			mode = entity.ModeDualAngle
		}
		user, err := b.inspection.Begin(ctx, userID, chatID, mode)
		if err != nil {
			b.log.Error("begin check", zap.Int64("user_id", userID), zap.Error(err))
			b.sendMessage(chatID, msgProcessingError)
			return
		}
		b.sendMessage(chatID, photoPrompts[user.State])

	case "cancel":
		if _, err := b.inspection.Cancel(ctx, userID, chatID); err != nil {
			b.log.Error("cancel check", zap.Int64("user_id", userID), zap.Error(err))
		}
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// handlePhoto принимает очередное фото и запускает анализ, когда собраны все снимки
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, fileID string) {
	userID, chatID := msg.From.ID, msg.Chat.ID
	log := b.log.With(zap.Int64("user_id", userID))

	data, err := b.downloadFile(ctx, fileID)
	if err != nil {
		log.Warn("download photo", zap.Error(err))
		b.sendMessage(chatID, msgDownloadError)
		return
	}

	user, ready, err := b.inspection.AcceptPhoto(ctx, userID, chatID, data)
	if err != nil {
		var inputErr *entity.InputError
		switch {
		case errors.Is(err, app.ErrNotAwaitingPhoto):
			if user != nil && user.State == entity.StateProcessing {
				b.sendMessage(chatID, msgBusy)
				return
			}
			b.sendMessage(chatID, msgSendCommand)
		case errors.As(err, &inputErr):
			b.sendMessage(chatID, msgInvalidPhoto)
		default:
			log.Error("accept photo", zap.Error(err))
			b.sendMessage(chatID, msgProcessingError)
		}
		return
	}
	if !ready {
		b.sendMessage(chatID, photoPrompts[user.State])
		return
	}

	b.sendMessage(chatID, msgProcessing)

	out, err := b.inspection.Process(ctx, userID, chatID)
	if err != nil {
		var modelErr *entity.ModelUnavailableError
		if errors.As(err, &modelErr) {
			log.Error("vision model unavailable", zap.Error(err))
			b.sendMessage(chatID, msgModelUnavailable)
			return
		}
		log.Error("process inspection", zap.Error(err))
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	b.sendMessage(chatID, FormatReport(out))
	for i, img := range out.Highlighted {
		b.sendPhoto(chatID, fmt.Sprintf("differences_%d.jpg", i+1), img)
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendPhoto(chatID int64, name string, data []byte) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if _, err := b.api.Send(photo); err != nil {
		b.log.Warn("send photo", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
