package ledger

import (
	"fmt"

	"github.com/roach88/ao20/internal/amount"
	"github.com/roach88/ao20/internal/ir"
)

// Notice kinds, carried in the notice's Action tag.
const (
	NoticeApprove           = "Approve-Notice"
	NoticeApproval          = "Approval-Notice"
	NoticeTransfer          = "Transfer-Notice"
	NoticeDebit             = "Debit-Notice"
	NoticeCredit            = "Credit-Notice"
	NoticePause             = "Pause-Notice"
	NoticeRenounceOwnership = "Renounce-Ownership-Notice"
	NoticeTransferOwnership = "Transfer-Ownership-Notice"
	NoticeNewOwnership      = "New-Ownership-Notice"
)

// Tag names read from requests and written to replies and notices.
const (
	TagAction       = "Action"
	TagRecipient    = "Recipient"
	TagQuantity     = "Quantity"
	TagSpender      = "Spender"
	TagSender       = "Sender"
	TagTarget       = "Target"
	TagAllowance    = "Allowance"
	TagBalance      = "Balance"
	TagAccount      = "Account"
	TagTicker       = "Ticker"
	TagTotalSupply  = "TotalSupply"
	TagProcess      = "Process"
	TagOwner        = "Owner"
	TagNewOwner     = "NewOwner"
	TagPaused       = "Paused"
	TagName         = "Name"
	TagDenomination = "Denomination"
	TagLogo         = "Logo"
	TagBurnable     = "Burnable"
	TagMintable     = "Mintable"
	TagPausable     = "Pausable"
)

func notice(target, kind, data string, tags ir.Tags) ir.Outbound {
	tags[TagAction] = kind
	return ir.Outbound{Target: target, Tags: tags, Data: data}
}

// debitNotice tells the debited account where its funds went.
func debitNotice(target, spender, recipient string, q amount.Amount) ir.Outbound {
	return notice(target, NoticeDebit,
		fmt.Sprintf("You transferred %s to %s initiated by %s", q, recipient, spender),
		ir.Tags{TagSpender: spender, TagRecipient: recipient, TagQuantity: q.String()},
	)
}

// creditNotice tells the credited account where its funds came from.
func creditNotice(target, spender, sender string, q amount.Amount) ir.Outbound {
	return notice(target, NoticeCredit,
		fmt.Sprintf("You received %s from %s initiated by %s", q, sender, spender),
		ir.Tags{TagSpender: spender, TagSender: sender, TagQuantity: q.String()},
	)
}

// transferNotice records a transfer moved by someone other than the
// source: an allowance spend, a mint or a burn-from.
func transferNotice(target, spender, sender, recipient string, q amount.Amount) ir.Outbound {
	return notice(target, NoticeTransfer,
		fmt.Sprintf("You initiated the transfer of %s from %s to %s", q, sender, recipient),
		ir.Tags{TagSpender: spender, TagSender: sender, TagRecipient: recipient, TagQuantity: q.String()},
	)
}

func approveNotice(owner, spender string, q amount.Amount) ir.Outbound {
	return notice(owner, NoticeApprove,
		fmt.Sprintf("You granted an allowance of %s to %s", q, spender),
		ir.Tags{TagSpender: spender, TagAllowance: q.String()},
	)
}

func approvalNotice(owner, spender string, q amount.Amount) ir.Outbound {
	return notice(spender, NoticeApproval,
		fmt.Sprintf("You received an allowance of %s from %s", q, owner),
		ir.Tags{TagSender: owner, TagAllowance: q.String()},
	)
}

func pauseNotice(target, process string, paused bool) ir.Outbound {
	value := formatBool(paused)
	return notice(target, NoticePause,
		fmt.Sprintf("Process %s paused status set to %s", process, value),
		ir.Tags{TagProcess: process, TagPaused: value},
	)
}

func renounceOwnershipNotice(target, process string) ir.Outbound {
	return notice(target, NoticeRenounceOwnership,
		fmt.Sprintf("Process %s ownership has been renounced", process),
		ir.Tags{TagProcess: process, TagOwner: NilAddress},
	)
}

func newOwnershipNotice(process, oldOwner, newOwner string) ir.Outbound {
	return notice(newOwner, NoticeNewOwnership,
		fmt.Sprintf("You received ownership of %s from %s", process, oldOwner),
		ir.Tags{TagProcess: process, TagOwner: newOwner},
	)
}

func transferOwnershipNotice(process, oldOwner, newOwner string) ir.Outbound {
	return notice(oldOwner, NoticeTransferOwnership,
		fmt.Sprintf("You transferred ownership of %s to %s", process, newOwner),
		ir.Tags{TagProcess: process, TagOwner: newOwner},
	)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
