package models

import "time"

// Discussion is a course forum thread.
type Discussion struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DiscussionSummary is the list projection with counters for the caller.
type DiscussionSummary struct {
	Discussion
	AuthorName   string `db:"author_name" json:"author_name"`
	AuthorRole   string `db:"author_role" json:"author_role"`
	CommentCount int    `db:"comment_count" json:"comment_count"`
	UpvoteCount  int    `db:"upvote_count" json:"upvote_count"`
	Upvoted      bool   `db:"upvoted" json:"upvoted"`
}

// DiscussionComment is a reply within a discussion.
type DiscussionComment struct {
	ID           string    `db:"id" json:"id"`
	DiscussionID string    `db:"discussion_id" json:"discussion_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Body         string    `db:"body" json:"body"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CommentDetail adds author and vote state.
type CommentDetail struct {
	DiscussionComment
	AuthorName  string `db:"author_name" json:"author_name"`
	UpvoteCount int    `db:"upvote_count" json:"upvote_count"`
	Upvoted     bool   `db:"upvoted" json:"upvoted"`
}

// DiscussionThread is a discussion with all comments.
type DiscussionThread struct {
	DiscussionSummary
	Comments []CommentDetail `json:"comments"`
}

// UpvoteTarget names what an upvote toggle applies to.
type UpvoteTarget string

const (
	UpvoteTargetDiscussion UpvoteTarget = "discussion"
	UpvoteTargetComment    UpvoteTarget = "comment"
)

// UpvoteResult reports the caller's state after a toggle.
type UpvoteResult struct {
	Upvoted bool `json:"upvoted"`
	Count   int  `json:"count"`
}

// CreateDiscussionRequest payload for opening a thread.
type CreateDiscussionRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"required,max=10000"`
}

// CreateCommentRequest payload for replying.
type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

// DiscussionEvent is pushed to subscribers when forum rows change. Receivers
// refetch the course's discussion list.
type DiscussionEvent struct {
	Type     string `json:"type"`
	CourseID string `json:"course_id"`
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id"`
	Op       string `json:"op,omitempty"`
}
