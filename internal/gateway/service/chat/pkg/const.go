package pkg

// ModuleName tags log lines emitted by the chat service.
const ModuleName = "chat"
