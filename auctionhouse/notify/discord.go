package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
)

// MessageCreator is the part of the disgo REST client the notifier uses.
type MessageCreator interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
	CreateDMChannel(userID snowflake.ID, opts ...rest.RequestOpt) (*discord.DMChannel, error)
}

// SnapshotSource resolves auction details for announcements.
type SnapshotSource interface {
	Get(auctionID string) (auction.Snapshot, error)
}

// DiscordNotifier posts bids and results to a channel and DMs the parties
// of a finished auction when their ids are Discord snowflakes.
type DiscordNotifier struct {
	rest      MessageCreator
	channelID snowflake.ID
	auctions  SnapshotSource
}

func NewDiscordNotifier(token string, channelID snowflake.ID, auctions SnapshotSource) *DiscordNotifier {
	return newDiscordNotifier(rest.New(rest.NewClient(token)), channelID, auctions)
}

func newDiscordNotifier(client MessageCreator, channelID snowflake.ID, auctions SnapshotSource) *DiscordNotifier {
	return &DiscordNotifier{rest: client, channelID: channelID, auctions: auctions}
}

// Run blocks until ctx is done or the subscription is closed.
func (n *DiscordNotifier) Run(ctx context.Context, sub *auction.Subscription) error {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			n.handle(ev)
		}
	}
}

func (n *DiscordNotifier) handle(ev auction.Event) {
	switch ev.Type {
	case auction.EventBidAccepted:
		n.post(fmt.Sprintf("[BID] %s placed a bid of %d 💰 on Auction #%s", mention(ev.BidderID), ev.Amount, ev.AuctionID))
	case auction.EventPriceDecayed:
		n.post(fmt.Sprintf("[PRICE] Auction #%s dropped to %d 💰", ev.AuctionID, ev.Price))
	case auction.EventSettlementStalled:
		n.post(fmt.Sprintf("[ALERT] Settlement of Auction #%s is stalled: %s", ev.AuctionID, ev.Reason))
	case auction.EventAuctionClosed:
		n.announceClose(ev)
	}
}

func (n *DiscordNotifier) announceClose(ev auction.Event) {
	itemName := ev.AuctionID
	sellerID := ""
	if snap, err := n.auctions.Get(ev.AuctionID); err == nil {
		itemName = snap.Item.Name
		sellerID = snap.Seller.ID
	}

	var description string
	switch {
	case ev.Status == auction.StatusSettled:
		description = fmt.Sprintf("**%s** sold to %s for %d flakes!", itemName, mention(ev.WinnerID), ev.Price)
	case ev.Status == auction.StatusCancelled:
		description = fmt.Sprintf("The auction for **%s** was cancelled.", itemName)
	default:
		description = fmt.Sprintf("The auction for **%s** ended unsold (%s). The item has been returned to the seller.", itemName, ev.Reason)
	}

	embed := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("🏛️ Auction #%s Completed", ev.AuctionID)).
		SetDescription(description).
		SetColor(0x2b2d31).
		Build()

	if _, err := n.rest.CreateMessage(n.channelID, discord.MessageCreate{Embeds: []discord.Embed{embed}}); err != nil {
		slog.Error("Failed to send to Discord",
			slog.String("auction_id", ev.AuctionID),
			slog.String("error", err.Error()))
	}

	if ev.Status != auction.StatusSettled {
		return
	}
	n.dm(sellerID, fmt.Sprintf("Your auction for **%s** has ended with a final price of %d flakes!", itemName, ev.Price))
	n.dm(ev.WinnerID, fmt.Sprintf("You won the auction for **%s** with a final price of %d flakes!", itemName, ev.Price))
}

func (n *DiscordNotifier) post(message string) {
	slog.Info(message)
	_, err := n.rest.CreateMessage(n.channelID, discord.NewMessageCreateBuilder().
		SetContent(message).
		Build())
	if err != nil {
		slog.Error("Failed to send to Discord",
			slog.String("error", err.Error()))
	}
}

func (n *DiscordNotifier) dm(userID, message string) {
	id, err := snowflake.Parse(userID)
	if err != nil {
		return
	}
	channel, err := n.rest.CreateDMChannel(id)
	if err != nil {
		slog.Error("Failed to create DM channel",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return
	}
	embed := discord.NewEmbedBuilder().
		SetTitle("🏛️ Auction Completed").
		SetDescription(message).
		SetColor(0x2b2d31).
		Build()
	if _, err := n.rest.CreateMessage(channel.ID(), discord.MessageCreate{Embeds: []discord.Embed{embed}}); err != nil {
		slog.Error("Failed to send DM",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}
}

func mention(userID string) string {
	if _, err := snowflake.Parse(userID); err == nil {
		return "<@" + userID + ">"
	}
	return userID
}
