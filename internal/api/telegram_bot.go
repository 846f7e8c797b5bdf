// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/simverse/riversim/internal/engine"
	"github.com/simverse/riversim/internal/entities"
	"github.com/simverse/riversim/internal/usecases"
)

// TelegramBot runs pollution control campaigns over Telegram chat. Each chat
// maps to one simulation session.
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	useCase *usecases.SimulationUseCase
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, useCase *usecases.SimulationUseCase) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %v", err)
	}

	return &TelegramBot{
		bot:     bot,
		useCase: useCase,
	}, nil
}

// Start begins listening for and handling Telegram messages
func (t *TelegramBot) Start() {
	log.Printf("Authorized on Telegram account %s", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	log.Println("Bot is now listening for messages...")

	for update := range updates {
		if update.Message == nil {
			continue
		}

		log.Printf("Received message from %s (ID: %d): %s",
			update.Message.From.UserName,
			update.Message.From.ID,
			update.Message.Text)

		t.handleMessage(update)
	}
}

// chatSessionID derives the simulation session id from the chat
func chatSessionID(message *tgbotapi.Message) string {
	return fmt.Sprintf("tg-%d", message.Chat.ID)
}

// handleMessage processes a Telegram message update
func (t *TelegramBot) handleMessage(update tgbotapi.Update) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "")

	switch {
	case update.Message.IsCommand():
		t.handleCommand(update.Message, &msg)
	default:
		t.handleNonCommand(update.Message, &msg)
	}

	log.Printf("Sending response to user %s", update.Message.From.UserName)
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// handleCommand processes commands like /start, /day, /policy, etc.
func (t *TelegramBot) handleCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	switch message.Command() {
	case "start":
		log.Printf("Handling /start command for user %s", message.From.UserName)
		t.handleStartCommand(message, msg)

	case "help":
		log.Printf("Handling /help command for user %s", message.From.UserName)
		msg.Text = "You are the Environmental Commissioner of the River Everglade Basin. " +
			fmt.Sprintf("Keep the ecosystem healthy for %d days.\n\n", t.useCase.CampaignDays()) +
			"Available commands:\n" +
			"/start - Start (or resume) your campaign\n" +
			"/status - Show current basin conditions\n" +
			"/day [discharge] [runoff] - Advance one day with inputs 0-10\n" +
			"/policy [treatment|regulation|cleanup] [on|off] - Toggle a policy\n" +
			"/report - Final sustainability report (after day 30)\n" +
			"/reset - Restart the campaign\n" +
			"/help - Show this help message\n\n" +
			"Anything else you type is sent to the basin advisor."

	case "status":
		log.Printf("Handling /status command for user %s", message.From.UserName)
		t.handleStatusCommand(message, msg)

	case "day":
		args := message.CommandArguments()
		log.Printf("Handling /day command with args '%s' for user %s", args, message.From.UserName)
		t.handleDayCommand(message, args, msg)

	case "policy":
		args := message.CommandArguments()
		log.Printf("Handling /policy command with args '%s' for user %s", args, message.From.UserName)
		t.handlePolicyCommand(message, args, msg)

	case "report":
		log.Printf("Handling /report command for user %s", message.From.UserName)
		t.handleReportCommand(message, msg)

	case "reset":
		log.Printf("Handling /reset command for user %s", message.From.UserName)
		t.handleResetCommand(message, msg)

	default:
		log.Printf("Received unknown command /%s from user %s", message.Command(), message.From.UserName)
		msg.Text = "Unknown command. Use /help to see available commands."
	}
}

// handleStartCommand creates or resumes the chat's campaign
func (t *TelegramBot) handleStartCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	s, err := t.useCase.GetOrCreateSession(chatSessionID(message))
	if err != nil {
		msg.Text = "Error starting your campaign. Please try again later."
		log.Printf("Error starting campaign: %v", err)
		return
	}

	msg.Text = "🌊 Welcome, Commissioner! You are in charge of the River Everglade Basin.\n\n" +
		fmt.Sprintf("Keep the ecosystem healthy for %d days. Use /day with discharge and runoff levels (0-10) to advance time, "+
			"and /policy to invest in interventions.\n\n", t.useCase.CampaignDays()) +
		formatSession(s, t.useCase.CampaignDays())
}

// handleStatusCommand shows current basin conditions
func (t *TelegramBot) handleStatusCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	s, err := t.useCase.GetSession(chatSessionID(message))
	if err != nil {
		msg.Text = "No campaign yet. Use /start to begin."
		return
	}
	msg.Text = formatSession(s, t.useCase.CampaignDays())
}

// handleDayCommand advances the campaign by one day
func (t *TelegramBot) handleDayCommand(message *tgbotapi.Message, args string, msg *tgbotapi.MessageConfig) {
	// Defaults mirror the dashboard's initial slider positions.
	factory, farm := 5.0, 3.0
	fields := strings.Fields(args)
	if len(fields) >= 1 {
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			msg.Text = "Discharge must be a number between 0 and 10. Example: /day 5 3"
			return
		}
		factory = v
	}
	if len(fields) >= 2 {
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			msg.Text = "Runoff must be a number between 0 and 10. Example: /day 5 3"
			return
		}
		farm = v
	}

	id := chatSessionID(message)
	if _, err := t.useCase.GetOrCreateSession(id); err != nil {
		msg.Text = "Error starting your campaign. Please try again later."
		log.Printf("Error starting campaign: %v", err)
		return
	}

	s, _, err := t.useCase.AdvanceDay(id, factory, farm)
	switch {
	case errors.Is(err, usecases.ErrInvalidInput):
		msg.Text = "Inputs must be between 0 and 10. Example: /day 5 3"
		return
	case errors.Is(err, usecases.ErrCampaignOver):
		msg.Text = "✅ Your campaign is complete! Use /report for the final grade, or /reset to play again."
		return
	case err != nil:
		msg.Text = "Error advancing the simulation. Please try again later."
		log.Printf("Error advancing simulation: %v", err)
		return
	}

	text := formatSession(s, t.useCase.CampaignDays())
	if engine.CampaignOver(s, t.useCase.CampaignDays()) {
		text += "\n\n✅ Simulation campaign complete! Use /report for your final grade."
	}
	msg.Text = text
}

// handlePolicyCommand toggles a policy intervention
func (t *TelegramBot) handlePolicyCommand(message *tgbotapi.Message, args string, msg *tgbotapi.MessageConfig) {
	fields := strings.Fields(strings.ToLower(args))
	if len(fields) != 2 || (fields[1] != "on" && fields[1] != "off") {
		msg.Text = "Usage: /policy [treatment|regulation|cleanup] [on|off]"
		return
	}
	enable := fields[1] == "on"

	id := chatSessionID(message)
	s, err := t.useCase.GetOrCreateSession(id)
	if err != nil {
		msg.Text = "Error loading your campaign. Please try again later."
		log.Printf("Error loading campaign: %v", err)
		return
	}

	policies := s.Policies
	switch fields[0] {
	case "treatment":
		policies.TreatmentPlant = enable
	case "regulation":
		policies.Regulation = enable
	case "cleanup":
		policies.CleanupDrive = enable
	default:
		msg.Text = "Unknown policy. Choose treatment, regulation or cleanup."
		return
	}

	updated, err := t.useCase.SetPolicies(id, policies)
	if err != nil {
		msg.Text = "Error updating policies. Please try again later."
		log.Printf("Error updating policies: %v", err)
		return
	}

	msg.Text = "🛡️ Policies updated.\n\n" + formatPolicies(updated.Policies)
}

// handleReportCommand issues the final sustainability report
func (t *TelegramBot) handleReportCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	report, err := t.useCase.GetReport(chatSessionID(message))
	switch {
	case errors.Is(err, usecases.ErrCampaignRunning):
		msg.Text = fmt.Sprintf("The campaign is still running. The report is issued on day %d.", t.useCase.CampaignDays())
		return
	case err != nil:
		msg.Text = "No campaign yet. Use /start to begin."
		return
	}

	msg.Text = fmt.Sprintf("📋 Final Sustainability Report\n\n"+
		"Grade: %s\n%s\n\n"+
		"Average aquatic health: %.1f%%\n"+
		"Final pollution index: %.1f\n"+
		"Final dissolved oxygen: %.2f mg/L\n\n"+
		"Use /reset to run another campaign.",
		report.Grade, report.Description,
		report.AverageHealth, report.FinalPollution, report.FinalOxygen)
}

// handleResetCommand restarts the chat's campaign
func (t *TelegramBot) handleResetCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	s, err := t.useCase.ResetSession(chatSessionID(message))
	if err != nil {
		msg.Text = "No campaign yet. Use /start to begin."
		return
	}
	msg.Text = "🔄 Campaign reset.\n\n" + formatSession(s, t.useCase.CampaignDays())
}

// handleNonCommand routes free text to the basin advisor
func (t *TelegramBot) handleNonCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	log.Printf("Received non-command message from user %s: %s", message.From.UserName, message.Text)

	id := chatSessionID(message)
	if _, err := t.useCase.GetOrCreateSession(id); err != nil {
		msg.Text = "I don't understand. Use /help to see available commands."
		log.Printf("Error loading campaign: %v", err)
		return
	}

	reply, err := t.useCase.HandleAdvisoryQuery(context.Background(), id, message.Text)
	if err != nil {
		msg.Text = "I don't understand. Use /help to see available commands."
		log.Printf("Error handling advisory query: %v", err)
		return
	}
	msg.Text = reply
}

// formatSession formats basin conditions for chat display
func formatSession(s *entities.Session, campaignDays int) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("📅 Day %d / %d - River Everglade Basin\n\n", s.Day, campaignDays))
	result.WriteString(fmt.Sprintf("🏭 Pollution Index: %.1f (%s)\n", s.Pollution, engine.PollutionStatus(s.Pollution)))
	result.WriteString(fmt.Sprintf("💧 Dissolved Oxygen: %.2f mg/L (%s)\n", s.Oxygen, engine.OxygenStatus(s.Oxygen)))
	result.WriteString(fmt.Sprintf("🐟 Aquatic Health: %.1f%% (%s)\n\n", s.Health, engine.HealthStatus(s.Health)))
	result.WriteString(formatPolicies(s.Policies))
	return result.String()
}

func formatPolicies(p entities.PolicySet) string {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	return fmt.Sprintf("🛡️ Treatment Plant: %s | Regulation: %s | Cleanup Drive: %s",
		onOff(p.TreatmentPlant), onOff(p.Regulation), onOff(p.CleanupDrive))
}
