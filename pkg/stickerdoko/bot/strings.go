package bot

// Reply texts
const (
	msgSenderUnknown     = "Failed to find the sender of this message"
	msgTagNotAuthorized  = "You're not authorized to tag stickers"
	msgTaggedSticker     = "Tagged the sticker with the following tags:"
	msgTagsNotSaved      = "These tags could not be saved, please try again:"
	msgUsernameMissing   = "You must set a username (check your Telegram settings)"
	msgNeedApproval      = "Great! Now tell the admin to approve your request"
	msgAlreadyRegistered = "You have already registered. Tell the admin to approve your request"
	msgAlreadyAllowed    = "You're already allowed to tag stickers"
	msgNotRegistered     = "The specified user has not registered"
	msgAmbiguousUsername = "Several users registered with that username, approve them from the admin API"
	msgWrongArgnum       = "Wrong number of arguments"
	msgNoPerm            = "*You're not supposed to do that*"
	msgNoStickerSet      = "Tagging is only supported for stickers that are contained in sticker sets"
	msgStickerUntagged   = "This sticker is not tagged"
	msgUntagSuccess      = "Successfully removed the specified tags"
	msgNoReplySticker    = "Reply to a sticker with this command"
	msgNoTags            = "Tell me which tags to use, e.g. /tag cute cat"
	msgTagsOnSticker     = "Tags on this sticker:"
	msgInternalError     = "Something went wrong, please try again later"
	msgHelpIntro         = "To search for stickers, simply tag the bot and type your keywords."
)

type commandHelp struct {
	name        string
	description string
}

// commandList is shown by /help, in this order. /start is accepted but not
// listed.
var commandList = []commandHelp{
	{"tag", "tag a sticker with text description"},
	{"register", "register self as a tagger"},
	{"allow", "allow a user to tag"},
	{"help", "get help message"},
	{"untag", "remove a tag from a sticker"},
	{"listtags", "list all tags associated with a sticker"},
}
