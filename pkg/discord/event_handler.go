package discord

import (
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
)

// EventHandler registers gateway handlers on the session
type EventHandler struct {
	client *ExtendedClient
	events []interface{}
	mu     sync.RWMutex
}

func NewEventHandler(client *ExtendedClient) *EventHandler {
	return &EventHandler{
		client: client,
		events: make([]interface{}, 0),
	}
}

// RegisterEvent adds a discordgo handler to the session
func (eh *EventHandler) RegisterEvent(handler interface{}) {
	eh.client.Session.AddHandler(handler)
	eh.mu.Lock()
	eh.events = append(eh.events, handler)
	eh.mu.Unlock()
}

// Count returns the number of registered handlers
func (eh *EventHandler) Count() int {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return len(eh.events)
}

// Handler types for the events the guard listens to

type ReadyHandler func(s *discordgo.Session, r *discordgo.Ready)
type GuildCreateHandler func(s *discordgo.Session, g *discordgo.GuildCreate)
type GuildUpdateHandler func(s *discordgo.Session, g *discordgo.GuildUpdate)
type ChannelCreateHandler func(s *discordgo.Session, c *discordgo.ChannelCreate)
type ChannelDeleteHandler func(s *discordgo.Session, c *discordgo.ChannelDelete)
type GuildRoleCreateHandler func(s *discordgo.Session, r *discordgo.GuildRoleCreate)
type GuildRoleDeleteHandler func(s *discordgo.Session, r *discordgo.GuildRoleDelete)
type GuildBanAddHandler func(s *discordgo.Session, b *discordgo.GuildBanAdd)
type GuildMemberAddHandler func(s *discordgo.Session, m *discordgo.GuildMemberAdd)
type GuildMemberRemoveHandler func(s *discordgo.Session, m *discordgo.GuildMemberRemove)
type GuildMemberUpdateHandler func(s *discordgo.Session, m *discordgo.GuildMemberUpdate)

// on registers handler. discordgo type-switches on the exact func type, so
// the On* helpers convert named handler types back to plain funcs.
func (eh *EventHandler) on(name string, handler interface{}) {
	eh.RegisterEvent(handler)
	logger.Debug("Evento '"+name+"' registrado", "EventHandler")
}

func (eh *EventHandler) OnReady(h ReadyHandler) {
	eh.on("Ready", (func(*discordgo.Session, *discordgo.Ready))(h))
}

func (eh *EventHandler) OnGuildCreate(h GuildCreateHandler) {
	eh.on("GuildCreate", (func(*discordgo.Session, *discordgo.GuildCreate))(h))
}

func (eh *EventHandler) OnGuildUpdate(h GuildUpdateHandler) {
	eh.on("GuildUpdate", (func(*discordgo.Session, *discordgo.GuildUpdate))(h))
}

func (eh *EventHandler) OnChannelCreate(h ChannelCreateHandler) {
	eh.on("ChannelCreate", (func(*discordgo.Session, *discordgo.ChannelCreate))(h))
}

func (eh *EventHandler) OnChannelDelete(h ChannelDeleteHandler) {
	eh.on("ChannelDelete", (func(*discordgo.Session, *discordgo.ChannelDelete))(h))
}

func (eh *EventHandler) OnGuildRoleCreate(h GuildRoleCreateHandler) {
	eh.on("GuildRoleCreate", (func(*discordgo.Session, *discordgo.GuildRoleCreate))(h))
}

func (eh *EventHandler) OnGuildRoleDelete(h GuildRoleDeleteHandler) {
	eh.on("GuildRoleDelete", (func(*discordgo.Session, *discordgo.GuildRoleDelete))(h))
}

func (eh *EventHandler) OnGuildBanAdd(h GuildBanAddHandler) {
	eh.on("GuildBanAdd", (func(*discordgo.Session, *discordgo.GuildBanAdd))(h))
}

func (eh *EventHandler) OnGuildMemberAdd(h GuildMemberAddHandler) {
	eh.on("GuildMemberAdd", (func(*discordgo.Session, *discordgo.GuildMemberAdd))(h))
}

func (eh *EventHandler) OnGuildMemberRemove(h GuildMemberRemoveHandler) {
	eh.on("GuildMemberRemove", (func(*discordgo.Session, *discordgo.GuildMemberRemove))(h))
}

func (eh *EventHandler) OnGuildMemberUpdate(h GuildMemberUpdateHandler) {
	eh.on("GuildMemberUpdate", (func(*discordgo.Session, *discordgo.GuildMemberUpdate))(h))
}
